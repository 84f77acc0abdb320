// Package common contains shared constants and sentinel errors used across
// the share-places server components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// MaxImageBytes is the upload ceiling for place and avatar images.
const MaxImageBytes = 1_000_000
