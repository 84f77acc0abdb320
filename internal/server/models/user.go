// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. PlaceIDs lists the places the user owns and
// is kept in step with the places table inside one transaction.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	ImageURL     string
	ImageKey     string
	PlaceIDs     []string
	CreatedAt    time.Time
}

// UserSummary is the public part of a user, as shown next to a place.
type UserSummary struct {
	ID       string
	UserName string
	Email    string
	ImageURL string
}
