// Package testutil provides in-memory stores with the same semantics as the MongoDB
// repositories, for service and HTTP tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/repositories"
	"pixelforge/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var clock = struct {
	sync.Mutex
	last time.Time
}{}

// tick returns a strictly increasing timestamp so "newest first" orderings are stable.
func tick() time.Time {
	clock.Lock()
	defer clock.Unlock()
	t := time.Now().UTC().Truncate(time.Millisecond)
	if !t.After(clock.last) {
		t = clock.last.Add(time.Millisecond)
	}
	clock.last = t
	return t
}

type UserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
	// Err, when set, is returned by every call.
	Err error
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[primitive.ObjectID]models.User{}}
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	user.Prepare()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	ts := tick()
	user.CreatedAt, user.UpdatedAt = ts, ts
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	email = models.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserStore) all() []models.User {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

func (s *UserStore) FindAll(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.all()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *UserStore) FindByRole(_ context.Context, role models.Role) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.User{}
	for _, u := range s.all() {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *UserStore) Update(_ context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if upd.Email != nil {
		email := models.NormalizeEmail(*upd.Email)
		for otherID, other := range s.users {
			if otherID != id && other.Email == email {
				return nil, repositories.ErrDuplicateKey
			}
		}
		u.Email = email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	u.UpdatedAt = tick()
	s.users[id] = u
	return &u, nil
}

func (s *UserStore) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

func (s *UserStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.users)), nil
}

func (s *UserStore) CountByRole(_ context.Context, role models.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type ProjectStore struct {
	mu       sync.Mutex
	projects map[primitive.ObjectID]models.Project
	// Err, when set, is returned by every call.
	Err error
	// AddDocumentErr, when set, is returned by AddDocument only.
	AddDocumentErr error
}

func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: map[primitive.ObjectID]models.Project{}}
}

func clone(p models.Project) models.Project {
	p.AssignedDevelopers = append([]primitive.ObjectID{}, p.AssignedDevelopers...)
	p.Documents = append([]models.Document{}, p.Documents...)
	return p
}

func (s *ProjectStore) Create(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	project.Prepare()
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	ts := tick()
	project.CreatedAt, project.UpdatedAt = ts, ts
	s.projects[project.ID] = clone(*project)
	return nil
}

func (s *ProjectStore) get(id primitive.ObjectID) (*models.Project, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	c := clone(p)
	return &c, nil
}

func (s *ProjectStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func matches(p models.Project, f models.ProjectFilter) bool {
	if f.LeadID != nil && p.ProjectLead != *f.LeadID {
		return false
	}
	if f.DeveloperID != nil && !p.HasDeveloper(*f.DeveloperID) {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	return true
}

func (s *ProjectStore) Find(_ context.Context, f models.ProjectFilter) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Project{}
	for _, p := range s.projects {
		if matches(p, f) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ProjectStore) Count(_ context.Context, f models.ProjectFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, p := range s.projects {
		if matches(p, f) {
			n++
		}
	}
	return n, nil
}

// mutate applies fn to the stored project when cond holds and returns the result.
func (s *ProjectStore) mutate(id primitive.ObjectID, cond func(models.Project) bool, fn func(*models.Project)) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.projects[id]
	if !ok || (cond != nil && !cond(p)) {
		return nil, nil
	}
	p = clone(p)
	fn(&p)
	p.UpdatedAt = tick()
	s.projects[id] = p
	c := clone(p)
	return &c, nil
}

func (s *ProjectStore) Update(_ context.Context, id primitive.ObjectID, upd models.ProjectUpdate) (*models.Project, error) {
	return s.mutate(id, nil, func(p *models.Project) {
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.Deadline != nil {
			p.Deadline = *upd.Deadline
		}
		if upd.Status != nil {
			p.Status = *upd.Status
		}
		if upd.AssignedDevelopers != nil {
			p.AssignedDevelopers = append([]primitive.ObjectID{}, *upd.AssignedDevelopers...)
		}
	})
}

func (s *ProjectStore) AddDeveloper(_ context.Context, id, devID primitive.ObjectID) (bool, error) {
	p, err := s.mutate(id,
		func(p models.Project) bool { return !p.HasDeveloper(devID) },
		func(p *models.Project) { p.AssignedDevelopers = append(p.AssignedDevelopers, devID) },
	)
	return p != nil, err
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := []primitive.ObjectID{}
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func (s *ProjectStore) RemoveDeveloper(_ context.Context, id, devID primitive.ObjectID) (*models.Project, error) {
	return s.mutate(id, nil, func(p *models.Project) {
		p.AssignedDevelopers = without(p.AssignedDevelopers, devID)
	})
}

func (s *ProjectStore) RemoveDeveloperEverywhere(_ context.Context, devID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, p := range s.projects {
		if p.HasDeveloper(devID) {
			p = clone(p)
			p.AssignedDevelopers = without(p.AssignedDevelopers, devID)
			p.UpdatedAt = tick()
			s.projects[id] = p
			n++
		}
	}
	return n, nil
}

func (s *ProjectStore) MarkCompleted(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	return s.mutate(id,
		func(p models.Project) bool { return p.Status == models.StatusActive },
		func(p *models.Project) { p.Status = models.StatusCompleted },
	)
}

func (s *ProjectStore) AddDocument(_ context.Context, id primitive.ObjectID, doc models.Document) (*models.Project, error) {
	if s.AddDocumentErr != nil {
		return nil, s.AddDocumentErr
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	return s.mutate(id, nil, func(p *models.Project) {
		p.Documents = append(p.Documents, doc)
	})
}

func (s *ProjectStore) Delete(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(id)
	if p != nil {
		delete(s.projects, id)
	}
	return p, err
}

func (s *ProjectStore) DocumentFilenames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	names := []string{}
	for _, p := range s.projects {
		for _, d := range p.Documents {
			names = append(names, d.Filename)
		}
	}
	return names, nil
}

// TokenRevoker is an in-memory blacklist.
type TokenRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	Err     error
}

func NewTokenRevoker() *TokenRevoker {
	return &TokenRevoker{revoked: map[string]time.Time{}}
}

func (r *TokenRevoker) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if ttl > 0 {
		r.revoked[jti] = time.Now().Add(ttl)
	}
	return nil
}

func (r *TokenRevoker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	exp, ok := r.revoked[jti]
	return ok && time.Now().Before(exp), nil
}

// Recorder counts recorded events by label.
type Recorder struct {
	mu      sync.Mutex
	Denials map[string]int
	Uploads map[string]int
}

func NewRecorder() *Recorder {
	return &Recorder{Denials: map[string]int{}, Uploads: map[string]int{}}
}

func (r *Recorder) RecordPolicyDenial(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Denials[action]++
}

func (r *Recorder) RecordDocumentUpload(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Uploads[outcome]++
}

func (r *Recorder) Uploaded(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Uploads[outcome]
}

func (r *Recorder) Denied(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Denials[action]
}

// SeedUser stores a user with the given role and a hash of password.
func SeedUser(t testingT, users *UserStore, name, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// SeedProject stores an Active project led by lead with the given developers.
func SeedProject(t testingT, projects *ProjectStore, name string, lead primitive.ObjectID, devs ...primitive.ObjectID) *models.Project {
	t.Helper()
	p := &models.Project{
		Name:               name,
		Description:        name + " description",
		Deadline:           time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Millisecond),
		ProjectLead:        lead,
		AssignedDevelopers: devs,
	}
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return p
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}
