// Package policy decides which caller may perform which action on which project.
//
// Decisions are pure: they depend only on the action, the caller's role and id, and the
// project's lead and developer set. Anything the table does not grant is denied.
package policy

import (
	"fmt"

	"pixelforge/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Action int

const (
	CreateProject Action = iota
	ViewProject
	UpdateProject
	CompleteProject
	DeleteProject
	AssignDeveloper
	RemoveDeveloper
	UploadDocument
	DownloadDocument
	ListProjects
	ListAllProjects
	ManageUsers
	ListDevelopers
	ViewDashboard

	numActions
)

// Actions lists every action the policy knows about.
var Actions = []Action{
	CreateProject, ViewProject, UpdateProject, CompleteProject, DeleteProject,
	AssignDeveloper, RemoveDeveloper, UploadDocument, DownloadDocument,
	ListProjects, ListAllProjects, ManageUsers, ListDevelopers, ViewDashboard,
}

var actionNames = [numActions]string{
	CreateProject:    "CreateProject",
	ViewProject:      "ViewProject",
	UpdateProject:    "UpdateProject",
	CompleteProject:  "CompleteProject",
	DeleteProject:    "DeleteProject",
	AssignDeveloper:  "AssignDeveloper",
	RemoveDeveloper:  "RemoveDeveloper",
	UploadDocument:   "UploadDocument",
	DownloadDocument: "DownloadDocument",
	ListProjects:     "ListProjects",
	ListAllProjects:  "ListAllProjects",
	ManageUsers:      "ManageUsers",
	ListDevelopers:   "ListDevelopers",
	ViewDashboard:    "ViewDashboard",
}

func (a Action) String() string {
	if a.valid() {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

func (a Action) valid() bool {
	return a >= 0 && a < numActions
}

// Caller is the authenticated principal of a request.
type Caller struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Role  models.Role
}

// CallerFromUser builds the Caller for a loaded user record.
func CallerFromUser(u *models.User) Caller {
	return Caller{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type rule int

const (
	never rule = iota
	always
	ifLead
	ifAssigned
)

// rules is indexed by role then action. Missing entries are the zero rule, never.
var rules = map[models.Role][numActions]rule{
	models.RoleAdmin: {
		CreateProject:    always,
		ViewProject:      always,
		UpdateProject:    always,
		CompleteProject:  always,
		DeleteProject:    always,
		AssignDeveloper:  always,
		RemoveDeveloper:  always,
		UploadDocument:   always,
		DownloadDocument: always,
		ListProjects:     always,
		ListAllProjects:  always,
		ManageUsers:      always,
		ListDevelopers:   always,
		ViewDashboard:    always,
	},
	models.RoleProjectLead: {
		ViewProject:      ifLead,
		UpdateProject:    ifLead,
		AssignDeveloper:  ifLead,
		RemoveDeveloper:  ifLead,
		UploadDocument:   ifLead,
		DownloadDocument: ifLead,
		ListProjects:     always,
		ListDevelopers:   always,
		ViewDashboard:    always,
	},
	models.RoleDeveloper: {
		ViewProject:      ifAssigned,
		DownloadDocument: ifAssigned,
		ListProjects:     always,
	},
}

// Decision is the outcome of a policy check. Reason is a caller-facing message when denied.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(action Action) Decision {
	return Decision{Reason: DenialMessage(action)}
}

// Decide reports whether caller may perform action on project. project may be nil for
// actions that are not tied to a project; ownership rules then deny.
func Decide(action Action, caller Caller, project *models.Project) Decision {
	if !action.valid() {
		return deny(action)
	}
	table, ok := rules[caller.Role]
	if !ok {
		return deny(action)
	}

	switch table[action] {
	case always:
		return allow()
	case ifLead:
		if project != nil && project.IsLead(caller.ID) {
			return allow()
		}
	case ifAssigned:
		if project != nil && project.HasDeveloper(caller.ID) {
			return allow()
		}
	case never:
	}
	return deny(action)
}

// CouldEver reports whether some project exists for which role may perform action.
// Routes use it to reject callers before any store access.
func CouldEver(action Action, role models.Role) bool {
	if !action.valid() {
		return false
	}
	table, ok := rules[role]
	if !ok {
		return false
	}
	return table[action] != never
}

// DenialMessage is the message returned to a caller who was refused action.
func DenialMessage(action Action) string {
	switch action {
	case CreateProject:
		return "Forbidden - Only admins can create projects"
	case ViewProject:
		return "Forbidden - You do not have access to this project"
	case UpdateProject:
		return "Forbidden - You do not have permission to update this project"
	case CompleteProject:
		return "Forbidden - Only admins can mark projects as completed"
	case DeleteProject:
		return "Forbidden - Only admins can delete projects"
	case AssignDeveloper:
		return "Forbidden - You can only assign developers to your own projects"
	case RemoveDeveloper:
		return "Forbidden - You do not have permission to modify this project"
	case UploadDocument:
		return "Forbidden - Only Admin or Project Lead can upload documents"
	case DownloadDocument:
		return "Forbidden - You do not have access to this document"
	}
	return "Forbidden - Insufficient permissions"
}
