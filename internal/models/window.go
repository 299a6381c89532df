package models

import "time"

// TimeWindow is a recency filter applied to provider queries. Lower
// PriorityRank means more recent and preferred.
type TimeWindow struct {
	FilterToken  string
	Label        string
	PriorityRank int
	Days         int
}

// Bounded reports whether the window restricts publication date.
func (w TimeWindow) Bounded() bool {
	return w.Days > 0
}

// PublishedAfter returns the earliest publication time the window admits,
// or the zero time for an unbounded window.
func (w TimeWindow) PublishedAfter(now time.Time) time.Time {
	if !w.Bounded() {
		return time.Time{}
	}
	return now.AddDate(0, 0, -w.Days)
}

// DefaultWindows returns the catalog, most recent first.
func DefaultWindows() []TimeWindow {
	return []TimeWindow{
		{FilterToken: "qdr:m3", Label: "last 3 months", PriorityRank: 0, Days: 90},
		{FilterToken: "qdr:m6", Label: "last 6 months", PriorityRank: 1, Days: 180},
		{FilterToken: "qdr:y", Label: "last year", PriorityRank: 2, Days: 365},
		{FilterToken: "", Label: "all time", PriorityRank: 3, Days: 0},
	}
}
