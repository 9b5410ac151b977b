// Package locale formats dates for the calendar views.
//
// There is no process-wide default: every view receives a Locale value and
// passes it to Format. Lookup resolves a tag such as "id" or "en-US".
package locale

import (
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// Locale holds the language used to render calendar labels. Month and
// weekday names come from the monday locale it wraps.
type Locale struct {
	Tag      string
	Name     string
	AllDay   string
	NoEvents string

	lang monday.Locale
}

var English = Locale{
	Tag:      "en",
	Name:     "English",
	AllDay:   "All day",
	NoEvents: "No events in this time period",
	lang:     monday.LocaleEnUS,
}

var Indonesian = Locale{
	Tag:      "id",
	Name:     "Bahasa Indonesia",
	AllDay:   "Sepanjang hari",
	NoEvents: "Tidak ada acara dalam periode ini",
	lang:     monday.LocaleIdID,
}

var registry = map[string]Locale{
	English.Tag:    English,
	Indonesian.Tag: Indonesian,
}

// Available returns the supported locales, English first.
func Available() []Locale {
	return []Locale{English, Indonesian}
}

// Lookup resolves tag by its primary language subtag ("id-ID" -> "id").
// Unknown tags fall back to English and ok is false.
func Lookup(tag string) (Locale, bool) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(t, "-_"); i >= 0 {
		t = t[:i]
	}
	l, ok := registry[t]
	if !ok {
		return English, false
	}
	return l, true
}

// goLayouts maps the supported date-fns tokens onto Go reference layouts.
var goLayouts = map[string]string{
	"yyyy": "2006",
	"MMMM": "January",
	"MMM":  "Jan",
	"MM":   "01",
	"M":    "1",
	"dd":   "02",
	"d":    "2",
	"EEEE": "Monday",
	"EEE":  "Mon",
	"HH":   "15",
	"hh":   "03",
	"h":    "3",
	"mm":   "04",
	"a":    "PM",
}

// Format renders t with a date-fns style pattern. Supported tokens:
//
//	yyyy MMMM MMM MM M dd d EEEE EEE HH H hh h mm a
//
// Any other letter run is copied verbatim; text in single quotes is literal.
func (l Locale) Format(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]

		if c == '\'' {
			j := strings.IndexByte(pattern[i+1:], '\'')
			if j < 0 {
				b.WriteString(pattern[i+1:])
				break
			}
			b.WriteString(pattern[i+1 : i+1+j])
			i += j + 2
			continue
		}

		if !isLetter(c) {
			b.WriteByte(c)
			i++
			continue
		}

		j := i
		for j < len(pattern) && pattern[j] == c {
			j++
		}
		b.WriteString(l.token(t, pattern[i:j]))
		i = j
	}
	return b.String()
}

func (l Locale) token(t time.Time, tok string) string {
	if tok == "H" {
		// Go layouts have no unpadded 24-hour form.
		return strconv.Itoa(t.Hour())
	}
	layout, ok := goLayouts[tok]
	if !ok {
		return tok
	}
	return monday.Format(t, layout, l.lang)
}

// HourLabel renders the time-gutter label for hour (0-23), e.g. "12 AM", "3 PM".
func (l Locale) HourLabel(hour int) string {
	return l.Format(time.Date(2000, time.January, 1, hour, 0, 0, 0, time.UTC), "h a")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
