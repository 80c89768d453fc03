package domain

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// NewID returns a fresh hex ObjectID, used as the primary key of chats,
// messages and users regardless of store backend.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidObjectID reports whether s is a 24 character hex ObjectID.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// IsValidIdentifier reports whether s can reference a user: either an
// ObjectID or a username.
func IsValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
