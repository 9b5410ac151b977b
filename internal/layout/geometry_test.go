package layout

import (
	"math"
	"testing"
	"time"

	"evcal/internal/model"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGeometry(t *testing.T) {
	tests := []struct {
		name string
		p    Positioned
		want Box
	}{
		{
			name: "single column",
			p:    Positioned{Event: ev("a", "09:00", "10:30"), Column: 0, ColumnCount: 1},
			want: Box{TopPx: 540, HeightPx: 90, LeftPct: 0, WidthPct: 100, GutterPx: 2},
		},
		{
			name: "second of three",
			p:    Positioned{Event: ev("b", "10:15", "11:00"), Column: 1, ColumnCount: 3},
			want: Box{TopPx: 615, HeightPx: 45, LeftPct: 100.0 / 3, WidthPct: 100.0 / 3, GutterPx: 2},
		},
		{
			name: "degenerate gets zero height",
			p:    Positioned{Event: ev("z", "11:00", "10:00"), Column: 0, ColumnCount: 1},
			want: Box{TopPx: 660, HeightPx: 0, LeftPct: 0, WidthPct: 100, GutterPx: 2},
		},
		{
			name: "zero column count treated as one",
			p:    Positioned{Event: ev("c", "00:00", "01:00")},
			want: Box{TopPx: 0, HeightPx: 60, LeftPct: 0, WidthPct: 100, GutterPx: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Geometry(tt.p, DefaultGrid())
			if !almost(got.TopPx, tt.want.TopPx) || !almost(got.HeightPx, tt.want.HeightPx) ||
				!almost(got.LeftPct, tt.want.LeftPct) || !almost(got.WidthPct, tt.want.WidthPct) ||
				got.GutterPx != tt.want.GutterPx {
				t.Errorf("Geometry() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGeometryCutsAtMidnight(t *testing.T) {
	e := model.Event{Start: clock("22:00"), End: clock("22:00").Add(4 * time.Hour)}
	got := Geometry(Positioned{Event: e, ColumnCount: 1}, DefaultGrid())
	if !almost(got.HeightPx, 120) {
		t.Errorf("HeightPx = %v, want 120", got.HeightPx)
	}

	allDay := model.Event{Start: day, End: day.AddDate(0, 0, 1)}
	got = Geometry(Positioned{Event: allDay, ColumnCount: 1}, DefaultGrid())
	if !almost(got.HeightPx, 24*60) {
		t.Errorf("HeightPx = %v, want %v", got.HeightPx, 24*60)
	}
}

func TestGeometryCustomGrid(t *testing.T) {
	got := Geometry(Positioned{Event: ev("a", "02:00", "03:00"), ColumnCount: 1}, Grid{RowHeight: 40, Gutter: -5})
	if !almost(got.TopPx, 80) || !almost(got.HeightPx, 40) || got.GutterPx != 0 {
		t.Errorf("Geometry() = %+v", got)
	}

	got = Geometry(Positioned{Event: ev("a", "02:00", "03:00"), ColumnCount: 1}, Grid{})
	if !almost(got.TopPx, 120) {
		t.Errorf("zero grid should fall back to default row height, got %+v", got)
	}
}

func TestBoxStyle(t *testing.T) {
	b := Box{TopPx: 600, HeightPx: 60, LeftPct: 50, WidthPct: 50, GutterPx: 2}
	want := "top:600.00px;height:60.00px;left:calc(50.0000% + 2px);width:calc(50.0000% - 4px)"
	if got := b.Style(); got != want {
		t.Errorf("Style() = %q, want %q", got, want)
	}
}
