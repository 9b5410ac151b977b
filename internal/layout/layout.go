// Package layout places overlapping events side by side.
//
// PositionEvents takes the events of one rendering pass (a day, or one day
// column of a week) and assigns each a column and a column count. Views turn
// those into geometry with Geometry. The package holds no state; concurrent
// calls are independent.
package layout

import (
	"slices"
	"time"

	"evcal/internal/model"
)

// Clustering selects how overlap clusters are formed.
type Clustering int

const (
	// Greedy makes one pass in start order; each event joins the first
	// existing cluster holding an event it overlaps, or starts a new one.
	Greedy Clustering = iota
	// Connected unions every overlapping pair and uses the resulting
	// connected components.
	Connected
)

// Sizing selects how ColumnCount is derived.
type Sizing int

const (
	// ClusterWidth gives every event of a cluster the same count: the
	// number of columns the cluster uses.
	ClusterWidth Sizing = iota
	// LocalWidth sizes each event by the peak number of cluster events that
	// are active at once during its own interval, then narrows events on the
	// left of a wider neighbour so boxes never collide.
	LocalWidth
)

// Options tunes PositionEventsWith. The zero value is Greedy/ClusterWidth.
type Options struct {
	Clustering Clustering
	Sizing     Sizing
}

// Positioned is an event with its horizontal slot. Column < ColumnCount.
type Positioned struct {
	Event       model.Event `json:"event"`
	Column      int         `json:"column"`
	ColumnCount int         `json:"column_count"`
}

// Overlaps reports whether [a.Start,a.End) and [b.Start,b.End) intersect.
// Touching intervals do not overlap.
func Overlaps(a, b model.Event) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// PositionEvents lays out events with the default options. Every input event
// appears exactly once in the result; the result is ordered by cluster, then
// by start time within a cluster.
func PositionEvents(events []model.Event) []Positioned {
	return PositionEventsWith(events, Options{})
}

// PositionEventsWith lays out events using opts.
func PositionEventsWith(events []model.Event, opts Options) []Positioned {
	out := make([]Positioned, 0, len(events))
	if len(events) == 0 {
		return out
	}

	sorted := byStart(events)

	var clusters [][]model.Event
	switch opts.Clustering {
	case Connected:
		clusters = connectedClusters(sorted)
	default:
		clusters = greedyClusters(sorted)
	}

	for _, c := range clusters {
		out = append(out, placeCluster(c, opts.Sizing)...)
	}
	return out
}

// byStart returns a copy of events sorted by start; ties keep input order.
func byStart(events []model.Event) []model.Event {
	s := slices.Clone(events)
	slices.SortStableFunc(s, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})
	return s
}

func greedyClusters(sorted []model.Event) [][]model.Event {
	var clusters [][]model.Event
	for _, ev := range sorted {
		joined := false
		for i := range clusters {
			if overlapsAny(clusters[i], ev) {
				clusters[i] = append(clusters[i], ev)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, []model.Event{ev})
		}
	}
	return clusters
}

func overlapsAny(cluster []model.Event, ev model.Event) bool {
	for _, member := range cluster {
		if Overlaps(member, ev) {
			return true
		}
	}
	return false
}

// connectedClusters groups sorted by union-find over all overlapping pairs.
// Clusters are ordered by their earliest member, members keep sorted order.
func connectedClusters(sorted []model.Event) [][]model.Event {
	parent := make([]int, len(sorted))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Keep the smaller index as root so cluster order follows first members.
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if Overlaps(sorted[i], sorted[j]) {
				union(i, j)
			}
		}
	}

	slot := make(map[int]int)
	var clusters [][]model.Event
	for i, ev := range sorted {
		root := find(i)
		idx, ok := slot[root]
		if !ok {
			idx = len(clusters)
			slot[root] = idx
			clusters = append(clusters, nil)
		}
		clusters[idx] = append(clusters[idx], ev)
	}
	return clusters
}

// placeCluster assigns columns first-fit in start order. A column is free
// for an event when the last end recorded for it is not after the event's
// start.
func placeCluster(cluster []model.Event, sizing Sizing) []Positioned {
	members := byStart(cluster)

	var colEnds []time.Time
	out := make([]Positioned, len(members))
	for i, ev := range members {
		col := -1
		for c, end := range colEnds {
			if !end.After(ev.Start) {
				col = c
				break
			}
		}
		if col < 0 {
			col = len(colEnds)
			colEnds = append(colEnds, ev.End)
		} else {
			colEnds[col] = ev.End
		}
		out[i] = Positioned{Event: ev, Column: col}
	}

	// Columns are allocated densely, so len(colEnds) is max column + 1.
	for i := range out {
		switch sizing {
		case LocalWidth:
			out[i].ColumnCount = max(peakConcurrency(members, members[i]), out[i].Column+1)
		default:
			out[i].ColumnCount = len(colEnds)
		}
	}
	if sizing == LocalWidth {
		separate(out)
	}
	return out
}

// separate narrows events until no two time-overlapping events intersect
// horizontally. For an overlapping pair with a.Column < b.Column the boxes
// are disjoint when (a.Column+1)/a.ColumnCount <= b.Column/b.ColumnCount.
// Only the left event is narrowed, so counts never exceed the initial
// maximum and the loop terminates.
func separate(out []Positioned) {
	for changed := true; changed; {
		changed = false
		for i := range out {
			for j := range out {
				a, b := &out[i], &out[j]
				if a.Column >= b.Column || !Overlaps(a.Event, b.Event) {
					continue
				}
				if (a.Column+1)*b.ColumnCount > b.Column*a.ColumnCount {
					// ceil((a.Column+1) * b.ColumnCount / b.Column)
					a.ColumnCount = ((a.Column+1)*b.ColumnCount + b.Column - 1) / b.Column
					changed = true
				}
			}
		}
	}
}

// peakConcurrency returns the largest number of members active at one
// instant within ev's interval. The peak is always reached at ev's own start
// or at the start of a member that begins inside it.
func peakConcurrency(members []model.Event, ev model.Event) int {
	peak := activeAt(members, ev.Start)
	for _, m := range members {
		if m.Start.After(ev.Start) && m.Start.Before(ev.End) {
			peak = max(peak, activeAt(members, m.Start))
		}
	}
	return peak
}

func activeAt(members []model.Event, t time.Time) int {
	n := 0
	for _, m := range members {
		if !m.Start.After(t) && t.Before(m.End) {
			n++
		}
	}
	return n
}
