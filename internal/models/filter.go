package models

import "strings"

// VideoSortField names a column video listings may be ordered by.
type VideoSortField string

const (
	SortCreatedAt VideoSortField = "createdAt"
	SortViews     VideoSortField = "views"
	SortTitle     VideoSortField = "title"
	SortDuration  VideoSortField = "duration"
)

// ParseVideoSort maps a query value onto a sort field, defaulting to creation time.
func ParseVideoSort(s string) VideoSortField {
	switch VideoSortField(strings.TrimSpace(s)) {
	case SortViews:
		return SortViews
	case SortTitle:
		return SortTitle
	case SortDuration:
		return SortDuration
	default:
		return SortCreatedAt
	}
}

// VideoFilter narrows a video listing.
type VideoFilter struct {
	// Query matches title or description, case-insensitively.
	Query   string
	OwnerID ID
	SortBy  VideoSortField
	// Ascending flips the default newest/largest-first order.
	Ascending bool
	// PublishedOnly hides unpublished videos except those owned by ViewerID.
	PublishedOnly bool
	ViewerID      ID
}

// Visible reports whether v passes the publication rule of the filter.
func (f VideoFilter) Visible(v Video) bool {
	if !f.PublishedOnly || v.IsPublished {
		return true
	}
	return !f.ViewerID.IsZero() && v.OwnerID == f.ViewerID
}

// Matches reports whether v passes every criterion of the filter.
func (f VideoFilter) Matches(v Video) bool {
	if !f.OwnerID.IsZero() && v.OwnerID != f.OwnerID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(v.Title), q) && !strings.Contains(strings.ToLower(v.Description), q) {
			return false
		}
	}
	return f.Visible(v)
}
