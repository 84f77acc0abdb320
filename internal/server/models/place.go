package models

import "time"

// Location is a resolved latitude/longitude pair.
type Location struct {
	Lat float64
	Lng float64
}

// Place is a shared location post. ImageKey is the object-storage key of the
// image behind ImageURL.
type Place struct {
	ID          string
	Title       string
	Description string
	Address     string
	Location    Location
	ImageURL    string
	ImageKey    string
	CreatorID   string
	CreatedAt   time.Time
}

// PlaceWithCreator is a read-only view joining a place with its owner.
type PlaceWithCreator struct {
	Place   Place
	Creator UserSummary
}

// PlaceUpdate carries the editable fields; nil means unchanged.
type PlaceUpdate struct {
	Title       *string
	Description *string
}

// Empty reports whether the update changes nothing.
func (u PlaceUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil
}
