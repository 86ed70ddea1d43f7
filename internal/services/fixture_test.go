package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/storage"
	"pixelforge/internal/testutil"
	"pixelforge/internal/utils"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx      context.Context
	users    *testutil.UserStore
	projects *testutil.ProjectStore
	revoker  *testutil.TokenRevoker
	recorder *testutil.Recorder
	disk     *storage.Disk
	tokens   *utils.TokenIssuer

	auth    *AuthService
	userSvc *UserService
	projSvc *ProjectService
	docSvc  *DocumentService

	admin *models.User
	lead  *models.User
	lead2 *models.User
	dev   *models.User
	dev2  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	disk, err := storage.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	f := &fixture{
		ctx:      context.Background(),
		users:    testutil.NewUserStore(),
		projects: testutil.NewProjectStore(),
		revoker:  testutil.NewTokenRevoker(),
		recorder: testutil.NewRecorder(),
		disk:     disk,
		tokens:   utils.NewTokenIssuer("test-secret", time.Hour),
	}
	f.auth = NewAuthService(f.users, f.tokens, f.revoker)
	f.userSvc = NewUserService(f.users, f.projects, f.recorder)
	f.projSvc = NewProjectService(f.projects, f.users, disk, f.recorder)
	f.docSvc = NewDocumentService(f.projects, f.users, disk, f.recorder, DocumentOptions{MaxBytes: DefaultMaxUploadBytes})

	f.admin = testutil.SeedUser(t, f.users, "Admin", "admin@pixelforge.com", "Admin@123", models.RoleAdmin)
	f.lead = testutil.SeedUser(t, f.users, "Lena Lead", "lena@pixelforge.com", "secret1", models.RoleProjectLead)
	f.lead2 = testutil.SeedUser(t, f.users, "Leo Lead", "leo@pixelforge.com", "secret1", models.RoleProjectLead)
	f.dev = testutil.SeedUser(t, f.users, "Dana Dev", "dana@pixelforge.com", "secret1", models.RoleDeveloper)
	f.dev2 = testutil.SeedUser(t, f.users, "Dave Dev", "dave@pixelforge.com", "secret1", models.RoleDeveloper)
	return f
}

func as(u *models.User) policy.Caller {
	return policy.CallerFromUser(u)
}

func requireKind(t *testing.T, err error, kind models.ErrorKind, message string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}
