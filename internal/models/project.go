package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	StatusActive    ProjectStatus = "Active"
	StatusCompleted ProjectStatus = "Completed"
)

func ParseProjectStatus(s string) (ProjectStatus, bool) {
	switch ProjectStatus(s) {
	case StatusActive, StatusCompleted:
		return ProjectStatus(s), true
	}
	return "", false
}

// Document is the metadata of an uploaded file. Filename is the generated name on disk,
// OriginalName is what the uploader called it and is only used as the download name.
type Document struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	UploadDate   time.Time          `bson:"uploadDate" json:"uploadDate"`
}

// Project matches documents in the projects collection. Documents are embedded and owned
// by the project; ProjectLead and AssignedDevelopers are references into users.
type Project struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name               string               `bson:"name" json:"name"`
	Description        string               `bson:"description" json:"description"`
	Deadline           time.Time            `bson:"deadline" json:"deadline"`
	Status             ProjectStatus        `bson:"status" json:"status"`
	ProjectLead        primitive.ObjectID   `bson:"projectLead" json:"projectLead"`
	AssignedDevelopers []primitive.ObjectID `bson:"assignedDevelopers" json:"assignedDevelopers"`
	Documents          []Document           `bson:"documents" json:"documents"`
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}

const (
	MaxProjectNameLength        = 100
	MaxProjectDescriptionLength = 2000
)

func (p *Project) Prepare() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.AssignedDevelopers == nil {
		p.AssignedDevelopers = []primitive.ObjectID{}
	}
	if p.Documents == nil {
		p.Documents = []Document{}
	}
}

func (p *Project) IsLead(userID primitive.ObjectID) bool {
	return p.ProjectLead == userID
}

func (p *Project) HasDeveloper(userID primitive.ObjectID) bool {
	for _, id := range p.AssignedDevelopers {
		if id == userID {
			return true
		}
	}
	return false
}

func (p *Project) FindDocument(filename string) (Document, bool) {
	for _, d := range p.Documents {
		if d.Filename == filename {
			return d, true
		}
	}
	return Document{}, false
}

// ProjectView is a project with its user references resolved to summaries.
type ProjectView struct {
	ID                 primitive.ObjectID `json:"_id"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Deadline           time.Time          `json:"deadline"`
	Status             ProjectStatus      `json:"status"`
	ProjectLead        *UserSummary       `json:"projectLead"`
	AssignedDevelopers []UserSummary      `json:"assignedDevelopers"`
	Documents          []Document         `json:"documents"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// DashboardStats is the body of the dashboard statistics endpoint.
type DashboardStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	TotalProjects     int64 `json:"totalProjects"`
	ActiveProjects    int64 `json:"activeProjects"`
	CompletedProjects int64 `json:"completedProjects"`
}
