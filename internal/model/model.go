package model

import "time"

// Color is the display color of an event. The zero value renders as
// DefaultColor.
type Color string

const (
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"

	DefaultColor = ColorGreen
)

// Colors lists the selectable colors in the order the edit form offers them.
var Colors = []Color{ColorGreen, ColorBlue, ColorRed, ColorYellow, ColorPurple}

// Valid reports whether c is one of Colors.
func (c Color) Valid() bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

// OrDefault returns c, or DefaultColor when c is empty.
func (c Color) OrDefault() Color {
	if c == "" {
		return DefaultColor
	}
	return c
}

// Event is a single calendar entry held by the store.
//
// Start/End are local wall-clock times. End is expected to be after Start;
// the form boundary (Draft) enforces this, imported events are taken as-is.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Color       Color     `json:"color,omitempty"`
	AllDay      bool      `json:"all_day,omitempty"`

	// SourceID is empty for events created through the UI/API and holds the
	// subscription ID (config ICS ID) for imported events.
	SourceID string `json:"source_id,omitempty"`
}

// Duration returns End-Start. Degenerate events yield zero or negative values.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// ReadOnly reports whether the event belongs to a subscription and is
// therefore replaced on every refresh.
func (e Event) ReadOnly() bool {
	return e.SourceID != ""
}
