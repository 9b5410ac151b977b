package layout

import (
	"fmt"
	"time"
)

// Default grid metrics: one 60px row per hour and a 2px gutter on each side
// of an event box.
const (
	DefaultRowHeight = 60
	DefaultGutter    = 2
)

// Grid describes the time grid of a day column.
type Grid struct {
	RowHeight float64 // pixels per hour
	Gutter    float64 // pixels left blank on each side of a box
}

// DefaultGrid returns the standard 60px/2px grid.
func DefaultGrid() Grid {
	return Grid{RowHeight: DefaultRowHeight, Gutter: DefaultGutter}
}

func (g Grid) normalized() Grid {
	if g.RowHeight <= 0 {
		g.RowHeight = DefaultRowHeight
	}
	if g.Gutter < 0 {
		g.Gutter = 0
	}
	return g
}

// Box is the rendered position of one event inside a day column. Vertical
// metrics are pixels; horizontal metrics are percentages of the column width
// adjusted by GutterPx.
type Box struct {
	TopPx    float64 `json:"top_px"`
	HeightPx float64 `json:"height_px"`
	LeftPct  float64 `json:"left_pct"`
	WidthPct float64 `json:"width_pct"`
	GutterPx float64 `json:"gutter_px"`
}

// Geometry maps a positioned event onto g.
//
// Top and height come from the wall-clock hour of Start and End (minutes as
// fractions). An event ending at or after the next midnight is cut there, and a
// degenerate event gets zero height. Width and left come from Column and
// ColumnCount.
func Geometry(p Positioned, g Grid) Box {
	g = g.normalized()

	startHour := hourOfDay(p.Event.Start)
	endHour := hourOfDay(p.Event.End)
	if endsAfterDay(p.Event.Start, p.Event.End) {
		endHour = 24
	}

	height := (endHour - startHour) * g.RowHeight
	if height < 0 {
		height = 0
	}

	count := p.ColumnCount
	if count < 1 {
		count = 1
	}

	return Box{
		TopPx:    startHour * g.RowHeight,
		HeightPx: height,
		LeftPct:  float64(p.Column) * 100 / float64(count),
		WidthPct: 100 / float64(count),
		GutterPx: g.Gutter,
	}
}

// Style renders the box as an inline CSS declaration list.
func (b Box) Style() string {
	return fmt.Sprintf("top:%.2fpx;height:%.2fpx;left:calc(%.4f%% + %.0fpx);width:calc(%.4f%% - %.0fpx)",
		b.TopPx, b.HeightPx, b.LeftPct, b.GutterPx, b.WidthPct, 2*b.GutterPx)
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func endsAfterDay(start, end time.Time) bool {
	y, m, d := start.Date()
	nextDay := time.Date(y, m, d+1, 0, 0, 0, 0, start.Location())
	return !end.Before(nextDay)
}
