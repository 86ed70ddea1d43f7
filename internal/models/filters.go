package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserUpdate carries the fields of a partial user update. Nil means leave unchanged.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *Role
}

func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil
}

// ProjectFilter narrows a project query. Nil fields do not filter.
type ProjectFilter struct {
	LeadID      *primitive.ObjectID
	DeveloperID *primitive.ObjectID
	Status      *ProjectStatus
}

// ProjectUpdate carries the fields of a partial project update. Nil means leave unchanged;
// a non-nil AssignedDevelopers replaces the whole set.
type ProjectUpdate struct {
	Name               *string
	Description        *string
	Deadline           *time.Time
	Status             *ProjectStatus
	AssignedDevelopers *[]primitive.ObjectID
}

func (u ProjectUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Deadline == nil &&
		u.Status == nil && u.AssignedDevelopers == nil
}
