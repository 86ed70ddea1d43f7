package services

import (
	"context"
	"io"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the persistence the services need for users. Lookups return (nil, nil)
// when nothing matches.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	FindByRole(ctx context.Context, role models.Role) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// ProjectStore is the persistence the services need for projects. Single-project
// operations return a nil project when the id does not match.
type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	Find(ctx context.Context, f models.ProjectFilter) ([]models.Project, error)
	Count(ctx context.Context, f models.ProjectFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.ProjectUpdate) (*models.Project, error)
	AddDeveloper(ctx context.Context, id, devID primitive.ObjectID) (bool, error)
	RemoveDeveloper(ctx context.Context, id, devID primitive.ObjectID) (*models.Project, error)
	RemoveDeveloperEverywhere(ctx context.Context, devID primitive.ObjectID) (int64, error)
	MarkCompleted(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	AddDocument(ctx context.Context, id primitive.ObjectID, doc models.Document) (*models.Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	DocumentFilenames(ctx context.Context) ([]string, error)
}

// TokenRevoker records logged-out token ids.
type TokenRevoker interface {
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// DocumentStorage holds uploaded files by generated name.
type DocumentStorage interface {
	Save(name string, r io.Reader, limit int64) (int64, error)
	Remove(name string) error
	Path(name string) (string, error)
	Exists(name string) (bool, error)
}

// Recorder receives domain events for metrics.
type Recorder interface {
	RecordPolicyDenial(action string)
	RecordDocumentUpload(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordPolicyDenial(string)   {}
func (nopRecorder) RecordDocumentUpload(string) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// authorize runs the policy and turns a denial into a Forbidden error.
func authorize(rec Recorder, action policy.Action, caller policy.Caller, project *models.Project) error {
	d := policy.Decide(action, caller, project)
	if d.Allowed {
		return nil
	}
	rec.RecordPolicyDenial(action.String())
	return models.NewForbiddenError(d.Reason)
}

// parseID validates a path id before any store access.
func parseID(id, message string) (primitive.ObjectID, error) {
	oid, err := utils.ParseObjectID(id)
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError(message)
	}
	return oid, nil
}
