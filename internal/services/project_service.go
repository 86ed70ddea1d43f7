package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgInvalidProjectID   = "Invalid project ID format"
	msgProjectNotFound    = "Project not found"
	msgInvalidDeveloperID = "Invalid developer ID format"
	msgDevelopersNotFound = "One or more assigned developers not found"
	msgInvalidDate        = "Invalid date format"
)

type ProjectService struct {
	projects ProjectStore
	users    UserStore
	files    DocumentStorage
	recorder Recorder
}

func NewProjectService(projects ProjectStore, users UserStore, files DocumentStorage, recorder Recorder) *ProjectService {
	return &ProjectService{
		projects: projects,
		users:    users,
		files:    files,
		recorder: recorderOrNop(recorder),
	}
}

type CreateProjectRequest struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Deadline           string   `json:"deadline"`
	ProjectLead        string   `json:"projectLead"`
	AssignedDevelopers []string `json:"assignedDevelopers"`
}

// UpdateProjectRequest is a presence-based partial update: a nil field is left unchanged.
type UpdateProjectRequest struct {
	Name               *string   `json:"name,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Deadline           *string   `json:"deadline,omitempty"`
	Status             *string   `json:"status,omitempty"`
	AssignedDevelopers *[]string `json:"assignedDevelopers,omitempty"`
}

type DeveloperRequest struct {
	DeveloperID string `json:"developerId"`
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > models.MaxProjectNameLength {
		return models.NewValidationError("Project name cannot exceed 100 characters")
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > models.MaxProjectDescriptionLength {
		return models.NewValidationError("Description cannot exceed 2000 characters")
	}
	return nil
}

// resolveDevelopers parses ids, drops duplicates and checks every id names a Developer.
func (s *ProjectService) resolveDevelopers(ctx context.Context, ids []string) ([]primitive.ObjectID, error) {
	devIDs, err := utils.ParseObjectIDs(ids)
	if err != nil {
		return nil, models.NewValidationError(msgInvalidDeveloperID)
	}
	if len(devIDs) == 0 {
		return devIDs, nil
	}

	found, err := s.users.FindUsersByIDs(ctx, devIDs)
	if err != nil {
		return nil, err
	}
	if len(found) != len(devIDs) {
		return nil, models.NewValidationError(msgDevelopersNotFound)
	}
	for i := range found {
		if found[i].Role != models.RoleDeveloper {
			return nil, models.NewValidationError("All assigned users must have Developer role")
		}
	}
	return devIDs, nil
}

// load fetches a project by its path id, mapping a bad id to 400 and a missing project to 404.
func (s *ProjectService) load(ctx context.Context, id string) (*models.Project, error) {
	projectID, err := parseID(id, msgInvalidProjectID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	return project, nil
}

// CreateProject creates an Active project. Only admins may create projects.
func (s *ProjectService) CreateProject(ctx context.Context, caller policy.Caller, req CreateProjectRequest) (*models.ProjectView, error) {
	if err := authorize(s.recorder, policy.CreateProject, caller, nil); err != nil {
		return nil, err
	}

	// 1. Required fields
	name := strings.TrimSpace(req.Name)
	desc := strings.TrimSpace(req.Description)
	if name == "" || desc == "" || strings.TrimSpace(req.Deadline) == "" {
		return nil, models.NewValidationError("Name, description, and deadline are required")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateDescription(desc); err != nil {
		return nil, err
	}
	deadline, err := utils.ParseDate(req.Deadline)
	if err != nil {
		return nil, models.NewValidationError(msgInvalidDate)
	}

	// 2. Project lead
	if strings.TrimSpace(req.ProjectLead) == "" {
		return nil, models.NewValidationError("Project lead is required")
	}
	leadID, err := utils.ParseObjectID(req.ProjectLead)
	if err != nil {
		return nil, models.NewValidationError("Valid project lead ID is required")
	}
	lead, err := s.users.FindUserByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, models.NewNotFoundError("Project lead user not found")
	}
	if !lead.Role.CanLead() {
		return nil, models.NewValidationError("Project lead must be Admin or ProjectLead")
	}

	// 3. Developers
	devIDs, err := s.resolveDevelopers(ctx, req.AssignedDevelopers)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:               name,
		Description:        desc,
		Deadline:           deadline,
		Status:             models.StatusActive,
		ProjectLead:        leadID,
		AssignedDevelopers: devIDs,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "project created",
		slog.String("project_id", project.ID.Hex()),
		slog.String("lead_id", leadID.Hex()),
	)
	return populateOne(ctx, s.users, project)
}

// scope narrows a project listing to what caller may see.
func scope(caller policy.Caller) (models.ProjectFilter, error) {
	switch caller.Role {
	case models.RoleAdmin:
		return models.ProjectFilter{}, nil
	case models.RoleProjectLead:
		id := caller.ID
		return models.ProjectFilter{LeadID: &id}, nil
	case models.RoleDeveloper:
		id := caller.ID
		return models.ProjectFilter{DeveloperID: &id}, nil
	}
	return models.ProjectFilter{}, models.NewForbiddenError("Forbidden - Invalid role")
}

func (s *ProjectService) list(ctx context.Context, f models.ProjectFilter) ([]models.ProjectView, error) {
	projects, err := s.projects.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	return populate(ctx, s.users, projects)
}

// ListProjects returns the projects visible to caller: all for admins, led projects for
// leads, assigned projects for developers. Newest first.
func (s *ProjectService) ListProjects(ctx context.Context, caller policy.Caller) ([]models.ProjectView, error) {
	if err := authorize(s.recorder, policy.ListProjects, caller, nil); err != nil {
		return nil, err
	}
	f, err := scope(caller)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, f)
}

// ListActiveProjects is ListProjects restricted to Active projects.
func (s *ProjectService) ListActiveProjects(ctx context.Context, caller policy.Caller) ([]models.ProjectView, error) {
	if err := authorize(s.recorder, policy.ListProjects, caller, nil); err != nil {
		return nil, err
	}
	f, err := scope(caller)
	if err != nil {
		return nil, err
	}
	active := models.StatusActive
	f.Status = &active
	return s.list(ctx, f)
}

func (s *ProjectService) ListAllProjects(ctx context.Context, caller policy.Caller) ([]models.ProjectView, error) {
	if err := authorize(s.recorder, policy.ListAllProjects, caller, nil); err != nil {
		return nil, err
	}
	return s.list(ctx, models.ProjectFilter{})
}

func (s *ProjectService) DashboardStats(ctx context.Context, caller policy.Caller) (*models.DashboardStats, error) {
	if err := authorize(s.recorder, policy.ViewDashboard, caller, nil); err != nil {
		return nil, err
	}

	var stats models.DashboardStats
	var err error
	if stats.TotalUsers, err = s.users.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.TotalProjects, err = s.projects.Count(ctx, models.ProjectFilter{}); err != nil {
		return nil, err
	}
	active, completed := models.StatusActive, models.StatusCompleted
	if stats.ActiveProjects, err = s.projects.Count(ctx, models.ProjectFilter{Status: &active}); err != nil {
		return nil, err
	}
	if stats.CompletedProjects, err = s.projects.Count(ctx, models.ProjectFilter{Status: &completed}); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *ProjectService) GetProject(ctx context.Context, caller policy.Caller, id string) (*models.ProjectView, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.recorder, policy.ViewProject, caller, project); err != nil {
		return nil, err
	}
	return populateOne(ctx, s.users, project)
}

// UpdateProject applies the fields present in req. Name, description and deadline cannot
// be cleared; a completed project cannot be reopened; completing through an update needs
// the same right as the complete operation.
func (s *ProjectService) UpdateProject(ctx context.Context, caller policy.Caller, id string, req UpdateProjectRequest) (*models.ProjectView, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.recorder, policy.UpdateProject, caller, project); err != nil {
		return nil, err
	}

	var upd models.ProjectUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, models.NewValidationError("Project name cannot be empty")
		}
		if err := validateName(name); err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc == "" {
			return nil, models.NewValidationError("Description cannot be empty")
		}
		if err := validateDescription(desc); err != nil {
			return nil, err
		}
		upd.Description = &desc
	}
	if req.Deadline != nil {
		deadline, err := utils.ParseDate(*req.Deadline)
		if err != nil {
			return nil, models.NewValidationError(msgInvalidDate)
		}
		upd.Deadline = &deadline
	}
	if req.Status != nil {
		status, ok := models.ParseProjectStatus(*req.Status)
		if !ok {
			return nil, models.NewValidationError("Status must be Active or Completed")
		}
		switch {
		case project.Status == models.StatusCompleted && status == models.StatusActive:
			return nil, models.NewConflictError("Completed projects cannot be reopened")
		case project.Status == models.StatusActive && status == models.StatusCompleted:
			if err := authorize(s.recorder, policy.CompleteProject, caller, project); err != nil {
				return nil, err
			}
		}
		upd.Status = &status
	}
	if req.AssignedDevelopers != nil {
		devIDs, err := s.resolveDevelopers(ctx, *req.AssignedDevelopers)
		if err != nil {
			return nil, err
		}
		upd.AssignedDevelopers = &devIDs
	}

	if upd.Empty() {
		return populateOne(ctx, s.users, project)
	}

	updated, err := s.projects.Update(ctx, project.ID, upd)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	return populateOne(ctx, s.users, updated)
}

// parseDeveloperRequest checks the body before the path id, as clients expect the
// missing-field error first.
func parseDeveloperRequest(id string, req DeveloperRequest) (primitive.ObjectID, primitive.ObjectID, error) {
	if strings.TrimSpace(req.DeveloperID) == "" {
		return primitive.NilObjectID, primitive.NilObjectID, models.NewValidationError("Developer ID is required")
	}
	projectID, err := parseID(id, msgInvalidProjectID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	devID, err := parseID(req.DeveloperID, msgInvalidDeveloperID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return projectID, devID, nil
}

func (s *ProjectService) AssignDeveloper(ctx context.Context, caller policy.Caller, id string, req DeveloperRequest) (*models.ProjectView, error) {
	projectID, devID, err := parseDeveloperRequest(id, req)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	if err := authorize(s.recorder, policy.AssignDeveloper, caller, project); err != nil {
		return nil, err
	}

	dev, err := s.users.FindUserByID(ctx, devID)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, models.NewNotFoundError("Developer not found")
	}
	if dev.Role != models.RoleDeveloper {
		return nil, models.NewValidationError("User must have Developer role")
	}

	added, err := s.projects.AddDeveloper(ctx, projectID, devID)
	if err != nil {
		return nil, err
	}

	current, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	if !added {
		return nil, models.NewInvalidStateError("Developer is already assigned to this project")
	}
	return populateOne(ctx, s.users, current)
}

// RemoveDeveloper unassigns a developer. Removing someone who is not assigned succeeds
// without changing the project.
func (s *ProjectService) RemoveDeveloper(ctx context.Context, caller policy.Caller, id string, req DeveloperRequest) (*models.ProjectView, error) {
	projectID, devID, err := parseDeveloperRequest(id, req)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	if err := authorize(s.recorder, policy.RemoveDeveloper, caller, project); err != nil {
		return nil, err
	}

	updated, err := s.projects.RemoveDeveloper(ctx, projectID, devID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	return populateOne(ctx, s.users, updated)
}

// CompleteProject moves an Active project to Completed. Completed is terminal.
func (s *ProjectService) CompleteProject(ctx context.Context, caller policy.Caller, id string) (*models.ProjectView, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.recorder, policy.CompleteProject, caller, project); err != nil {
		return nil, err
	}
	if project.Status == models.StatusCompleted {
		return nil, models.NewInvalidStateError("Project is already completed")
	}

	completed, err := s.projects.MarkCompleted(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if completed == nil {
		// lost a race: either deleted or completed by someone else
		current, err := s.projects.GetByID(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, models.NewNotFoundError(msgProjectNotFound)
		}
		return nil, models.NewInvalidStateError("Project is already completed")
	}
	return populateOne(ctx, s.users, completed)
}

// DeleteProject removes the project and then its stored documents. File removal failures
// are logged and do not fail the request.
func (s *ProjectService) DeleteProject(ctx context.Context, caller policy.Caller, id string) error {
	project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(s.recorder, policy.DeleteProject, caller, project); err != nil {
		return err
	}

	deleted, err := s.projects.Delete(ctx, project.ID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return models.NewNotFoundError(msgProjectNotFound)
	}

	for _, doc := range deleted.Documents {
		if err := s.files.Remove(doc.Filename); err != nil {
			slog.WarnContext(ctx, "failed to remove document file",
				slog.String("project_id", deleted.ID.Hex()),
				slog.String("filename", doc.Filename),
				slog.Any("error", err),
			)
		}
	}

	slog.InfoContext(ctx, "project deleted",
		slog.String("project_id", deleted.ID.Hex()),
		slog.Int("documents", len(deleted.Documents)),
	)
	return nil
}
