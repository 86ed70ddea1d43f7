package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidDate = errors.New("invalid date")

// ParseObjectID accepts only the 24 hex character form of an ObjectID, without surrounding
// whitespace.
func ParseObjectID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// ParseObjectIDs parses every id and drops duplicates while keeping the first occurrence order.
func ParseObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, s := range ids {
		id, err := ParseObjectID(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// ValidEmail applies the "email" rule of the request binding, so an address accepted on
// update is exactly one that would be accepted on create.
func ValidEmail(email string) bool {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	return ok && v.Var(email, "email") == nil
}
