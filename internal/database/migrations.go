package database

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

var indexes = []indexSpec{
	{UsersCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	}},
	{UsersCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "role", Value: 1}},
		Options: options.Index().SetName("role"),
	}},
	{ProjectsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}},
		Options: options.Index().SetName("status_deadline"),
	}},
	{ProjectsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "projectLead", Value: 1}},
		Options: options.Index().SetName("project_lead"),
	}},
	{ProjectsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "assignedDevelopers", Value: 1}},
		Options: options.Index().SetName("assigned_developers"),
	}},
	{ProjectsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("created_at"),
	}},
}

// RunMigrations creates the indexes the stores rely on. Creating an index that already
// exists with the same definition is a no-op, so this is safe to run on every start.
func RunMigrations(ctx context.Context, db *mongo.Database) error {
	for i, idx := range indexes {
		slog.Debug("ensuring index",
			slog.Int("step", i+1),
			slog.String("collection", idx.collection),
		)
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("index %d on %s failed: %w", i+1, idx.collection, err)
		}
	}

	slog.Info("all indexes ensured", slog.Int("count", len(indexes)))
	return nil
}
