package domain

import (
	"errors"
	"sort"
)

var (
	// ErrNoData is returned when an operation needs a non-empty dataset.
	ErrNoData = errors.New("no data")
	// ErrNoActiveTab is returned when no page is configured to act on.
	ErrNoActiveTab = errors.New("no active tab")
)

// Record is one observed post: its permalink and the view count shown at
// extraction time.
type Record struct {
	Link  string `json:"link" msgpack:"link"`
	Views int64  `json:"views" msgpack:"views"`
}

func (r Record) Valid() bool {
	return r.Link != "" && r.Views >= 0
}

// Dataset is the persisted collection of records. Links are unique.
type Dataset []Record

func (d Dataset) Contains(link string) bool {
	for _, r := range d {
		if r.Link == link {
			return true
		}
	}
	return false
}

// SortedByViews returns a copy ordered by views, highest first. Ties keep
// their stored order.
func (d Dataset) SortedByViews() Dataset {
	out := make(Dataset, len(d))
	copy(out, d)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Views > out[j].Views })
	return out
}
