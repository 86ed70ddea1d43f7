package services

import (
	"context"

	"pixelforge/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// populate resolves lead and developer references of projects with one user query.
// References that no longer resolve are left out of the view.
func populate(ctx context.Context, users UserStore, projects []models.Project) ([]models.ProjectView, error) {
	views := make([]models.ProjectView, 0, len(projects))
	if len(projects) == 0 {
		return views, nil
	}

	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for i := range projects {
		add(projects[i].ProjectLead)
		for _, d := range projects[i].AssignedDevelopers {
			add(d)
		}
	}

	found, err := users.FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(found))
	for i := range found {
		byID[found[i].ID] = found[i].Summary()
	}

	for i := range projects {
		p := &projects[i]
		v := models.ProjectView{
			ID:                 p.ID,
			Name:               p.Name,
			Description:        p.Description,
			Deadline:           p.Deadline,
			Status:             p.Status,
			AssignedDevelopers: []models.UserSummary{},
			Documents:          p.Documents,
			CreatedAt:          p.CreatedAt,
			UpdatedAt:          p.UpdatedAt,
		}
		if v.Documents == nil {
			v.Documents = []models.Document{}
		}
		if lead, ok := byID[p.ProjectLead]; ok {
			v.ProjectLead = &lead
		}
		for _, d := range p.AssignedDevelopers {
			if dev, ok := byID[d]; ok {
				v.AssignedDevelopers = append(v.AssignedDevelopers, dev)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func populateOne(ctx context.Context, users UserStore, project *models.Project) (*models.ProjectView, error) {
	views, err := populate(ctx, users, []models.Project{*project})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
