package policy

import (
	"testing"

	"pixelforge/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ownership int

const (
	noProject ownership = iota
	unrelated
	leads
	assigned
)

func (o ownership) String() string {
	return [...]string{"no-project", "unrelated", "lead", "assigned"}[o]
}

func projectFor(callerID primitive.ObjectID, o ownership) *models.Project {
	p := &models.Project{
		ID:          primitive.NewObjectID(),
		ProjectLead: primitive.NewObjectID(),
		Status:      models.StatusActive,
	}
	switch o {
	case noProject:
		return nil
	case leads:
		p.ProjectLead = callerID
	case assigned:
		p.AssignedDevelopers = []primitive.ObjectID{callerID}
	}
	return p
}

// expected mirrors the documented permission table.
func expected(action Action, role models.Role, o ownership) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectLead:
		switch action {
		case ListProjects, ListDevelopers, ViewDashboard:
			return true
		case ViewProject, UpdateProject, AssignDeveloper, RemoveDeveloper, UploadDocument, DownloadDocument:
			return o == leads
		}
	case models.RoleDeveloper:
		switch action {
		case ListProjects:
			return true
		case ViewProject, DownloadDocument:
			return o == assigned
		}
	}
	return false
}

func TestDecide_TableIsTotal(t *testing.T) {
	roles := append([]models.Role{"Guest", ""}, models.Roles...)
	owns := []ownership{noProject, unrelated, leads, assigned}

	for _, action := range Actions {
		for _, role := range roles {
			for _, o := range owns {
				caller := Caller{ID: primitive.NewObjectID(), Role: role}
				project := projectFor(caller.ID, o)

				first := Decide(action, caller, project)
				second := Decide(action, caller, project)

				assert.Equal(t, first, second, "%s/%s/%s not deterministic", action, role, o)
				assert.Equal(t, expected(action, role, o), first.Allowed, "%s/%s/%s", action, role, o)
				if !first.Allowed {
					assert.NotEmpty(t, first.Reason, "%s/%s/%s denied without reason", action, role, o)
				} else {
					assert.Empty(t, first.Reason)
				}
			}
		}
	}
}

func TestDecide_UnknownActionDenied(t *testing.T) {
	caller := Caller{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	d := Decide(Action(99), caller, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Forbidden - Insufficient permissions", d.Reason)

	d = Decide(Action(-1), caller, nil)
	assert.False(t, d.Allowed)
}

func TestDecide_LeadOfOtherProjectDenied(t *testing.T) {
	lead := Caller{ID: primitive.NewObjectID(), Role: models.RoleProjectLead}
	other := &models.Project{ProjectLead: primitive.NewObjectID()}

	d := Decide(UpdateProject, lead, other)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Forbidden - You do not have permission to update this project", d.Reason)
}

func TestDecide_LeadAssignedAsDeveloperStillDenied(t *testing.T) {
	lead := Caller{ID: primitive.NewObjectID(), Role: models.RoleProjectLead}
	p := &models.Project{ProjectLead: primitive.NewObjectID(), AssignedDevelopers: []primitive.ObjectID{lead.ID}}

	assert.False(t, Decide(ViewProject, lead, p).Allowed)
}

func TestCouldEver(t *testing.T) {
	tests := []struct {
		action Action
		role   models.Role
		want   bool
	}{
		{CreateProject, models.RoleAdmin, true},
		{CreateProject, models.RoleProjectLead, false},
		{UpdateProject, models.RoleProjectLead, true},
		{UpdateProject, models.RoleDeveloper, false},
		{DownloadDocument, models.RoleDeveloper, true},
		{UploadDocument, models.RoleDeveloper, false},
		{ManageUsers, models.RoleProjectLead, false},
		{ListDevelopers, models.RoleProjectLead, true},
		{ListDevelopers, models.RoleDeveloper, false},
		{ViewDashboard, models.RoleDeveloper, false},
		{ListProjects, "Guest", false},
		{Action(42), models.RoleAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.action.String()+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, CouldEver(tt.action, tt.role))
		})
	}
}

func TestCouldEver_AgreesWithDecide(t *testing.T) {
	for _, action := range Actions {
		for _, role := range models.Roles {
			caller := Caller{ID: primitive.NewObjectID(), Role: role}
			someAllowed := false
			for _, o := range []ownership{noProject, unrelated, leads, assigned} {
				if Decide(action, caller, projectFor(caller.ID, o)).Allowed {
					someAllowed = true
				}
			}
			assert.Equal(t, someAllowed, CouldEver(action, role), "%s/%s", action, role)
		}
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "UploadDocument", UploadDocument.String())
	assert.Equal(t, "Action(77)", Action(77).String())
	assert.Len(t, Actions, int(numActions))
}
