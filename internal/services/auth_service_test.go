package services

import (
	"errors"
	"testing"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Login(f.ctx, LoginRequest{Email: "ADMIN@pixelforge.com ", Password: "Admin@123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, f.admin.ID, res.User.ID)

	caller, claims, err := f.auth.Authenticate(f.ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, caller.Role)
	assert.Equal(t, f.admin.Email, caller.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Login(f.ctx, LoginRequest{Email: "admin@pixelforge.com"})
	requireKind(t, err, models.KindValidation, "")

	_, err = f.auth.Login(f.ctx, LoginRequest{Email: "admin@pixelforge.com", Password: "wrong"})
	requireKind(t, err, models.KindAuthentication, "Invalid email or password")

	_, err = f.auth.Login(f.ctx, LoginRequest{Email: "ghost@pixelforge.com", Password: "Admin@123"})
	requireKind(t, err, models.KindAuthentication, "Invalid email or password")
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.auth.Authenticate(f.ctx, "not-a-token")
	requireKind(t, err, models.KindAuthentication, "Unauthorized - Invalid token")

	expired := utils.NewTokenIssuer("test-secret", -time.Minute)
	token, _, err := expired.Issue(f.dev.ID)
	require.NoError(t, err)
	_, _, err = f.auth.Authenticate(f.ctx, token)
	requireKind(t, err, models.KindAuthentication, "Unauthorized - Token expired")

	token, _, err = f.tokens.Issue(f.dev.ID)
	require.NoError(t, err)
	_, err = f.users.Delete(f.ctx, f.dev.ID)
	require.NoError(t, err)
	_, _, err = f.auth.Authenticate(f.ctx, token)
	requireKind(t, err, models.KindAuthentication, "Unauthorized - User not found")
}

func TestAuthenticate_SeesRoleChanges(t *testing.T) {
	f := newFixture(t)

	token, _, err := f.tokens.Issue(f.dev.ID)
	require.NoError(t, err)

	role := models.RoleProjectLead
	_, err = f.users.Update(f.ctx, f.dev.ID, models.UserUpdate{Role: &role})
	require.NoError(t, err)

	caller, _, err := f.auth.Authenticate(f.ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleProjectLead, caller.Role)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Login(f.ctx, LoginRequest{Email: "dana@pixelforge.com", Password: "secret1"})
	require.NoError(t, err)

	_, claims, err := f.auth.Authenticate(f.ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(f.ctx, claims))

	_, _, err = f.auth.Authenticate(f.ctx, res.Token)
	requireKind(t, err, models.KindAuthentication, "Unauthorized - Token has been revoked")
}

func TestAuthenticate_RevocationStoreDown(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.tokens.Issue(f.dev.ID)
	require.NoError(t, err)

	f.revoker.Err = errors.New("connection refused")
	_, _, err = f.auth.Authenticate(f.ctx, token)
	require.Error(t, err)
	_, isApp := models.AsAppError(err)
	assert.False(t, isApp, "store failures are internal errors")
}

func TestLogout_WithoutRevoker(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.users, f.tokens, nil)

	token, _, err := f.tokens.Issue(f.dev.ID)
	require.NoError(t, err)
	_, claims, err := svc.Authenticate(f.ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(f.ctx, claims))
	_, _, err = svc.Authenticate(f.ctx, token)
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	f := newFixture(t)

	me, err := f.auth.Me(f.ctx, as(f.lead))
	require.NoError(t, err)
	assert.Equal(t, "Lena Lead", me.Name)
}
