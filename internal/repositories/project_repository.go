package repositories

import (
	"context"
	"errors"

	"pixelforge/internal/database"
	"pixelforge/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProjectRepository struct {
	coll *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{coll: db.Collection(database.ProjectsCollection)}
}

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	project.Prepare()
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	ts := now()
	project.CreatedAt = ts
	project.UpdatedAt = ts

	_, err := r.coll.InsertOne(ctx, project)
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	project.Prepare()
	return &project, nil
}

func filterDoc(f models.ProjectFilter) bson.M {
	doc := bson.M{}
	if f.LeadID != nil {
		doc["projectLead"] = *f.LeadID
	}
	if f.DeveloperID != nil {
		// equality on an array field matches any element
		doc["assignedDevelopers"] = *f.DeveloperID
	}
	if f.Status != nil {
		doc["status"] = *f.Status
	}
	return doc
}

// Find returns the projects matching f, newest first.
func (r *ProjectRepository) Find(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := r.coll.Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, err
	}
	projects := []models.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].Prepare()
	}
	return projects, nil
}

func (r *ProjectRepository) Count(ctx context.Context, f models.ProjectFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, filterDoc(f))
}

func (r *ProjectRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var project models.Project
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	project.Prepare()
	return &project, nil
}

// Update applies the non-nil fields of upd. It returns nil when no project has id.
func (r *ProjectRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.ProjectUpdate) (*models.Project, error) {
	set := bson.M{"updatedAt": now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Deadline != nil {
		set["deadline"] = *upd.Deadline
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.AssignedDevelopers != nil {
		devs := *upd.AssignedDevelopers
		if devs == nil {
			devs = []primitive.ObjectID{}
		}
		set["assignedDevelopers"] = devs
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// AddDeveloper adds devID to the project's developer set if it is not already there.
// It reports false when nothing changed, either because devID was present or because the
// project no longer exists.
func (r *ProjectRepository) AddDeveloper(ctx context.Context, id, devID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "assignedDevelopers": bson.M{"$ne": devID}},
		bson.M{
			"$addToSet": bson.M{"assignedDevelopers": devID},
			"$set":      bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveDeveloper pulls devID from the project's developer set and returns the project
// afterwards. A developer that was not assigned leaves the project unchanged.
func (r *ProjectRepository) RemoveDeveloper(ctx context.Context, id, devID primitive.ObjectID) (*models.Project, error) {
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"assignedDevelopers": devID}},
	)
}

// RemoveDeveloperEverywhere pulls devID from every project and returns how many changed.
func (r *ProjectRepository) RemoveDeveloperEverywhere(ctx context.Context, devID primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"assignedDevelopers": devID},
		bson.M{
			"$pull": bson.M{"assignedDevelopers": devID},
			"$set":  bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkCompleted moves an Active project to Completed. It returns nil when the project is
// missing or not Active.
func (r *ProjectRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusCompleted, "updatedAt": now()}},
	)
}

// AddDocument appends doc to the project's documents. It returns nil when the project no
// longer exists.
func (r *ProjectRepository) AddDocument(ctx context.Context, id primitive.ObjectID, doc models.Document) (*models.Project, error) {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"documents": doc},
			"$set":  bson.M{"updatedAt": now()},
		},
	)
}

// Delete removes the project and returns it, or nil when it did not exist.
func (r *ProjectRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	project.Prepare()
	return &project, nil
}

// DocumentFilenames returns the stored filename of every document of every project.
func (r *ProjectRepository) DocumentFilenames(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"documents.filename": 1})
	cur, err := r.coll.Find(ctx, bson.M{"documents.0": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	names := []string{}
	for cur.Next(ctx) {
		var row struct {
			Documents []struct {
				Filename string `bson:"filename"`
			} `bson:"documents"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		for _, d := range row.Documents {
			names = append(names, d.Filename)
		}
	}
	return names, cur.Err()
}
