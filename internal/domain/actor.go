package domain

import "strings"

// Actor is the user on whose behalf an operation runs. It is passed
// explicitly to every mutating operation.
type Actor struct {
	Username string
}

// Anonymous is used when a request carries no user.
var Anonymous = Actor{Username: "anonymous"}

// NewActor falls back to Anonymous for blank names.
func NewActor(username string) Actor {
	username = strings.TrimSpace(username)
	if username == "" {
		return Anonymous
	}
	return Actor{Username: username}
}
