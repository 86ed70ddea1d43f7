package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeAuthenticator struct {
	callers map[string]policy.Caller
	err     error
}

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (policy.Caller, *utils.Claims, error) {
	if f.err != nil {
		return policy.Caller{}, nil, f.err
	}
	caller, ok := f.callers[token]
	if !ok {
		return policy.Caller{}, nil, models.NewAuthenticationError("Unauthorized - Invalid token", nil)
	}
	return caller, &utils.Claims{}, nil
}

type denials map[string]int

func (d denials) RecordPolicyDenial(action string) { d[action]++ }

func authRouter(auth Authenticator, rec DenialRecorder) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(false))
	r.GET("/me", Authenticate(auth), func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		_, hasClaims := ClaimsFromContext(c)
		c.JSON(http.StatusOK, gin.H{"message": string(caller.Role), "success": hasClaims})
	})
	r.DELETE("/projects/:id", Authenticate(auth), Authorize(policy.DeleteProject, rec), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	auth := fakeAuthenticator{callers: map[string]policy.Caller{
		"admin-token": {ID: primitive.NewObjectID(), Role: models.RoleAdmin},
	}}
	r := authRouter(auth, nil)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"valid", "Bearer admin-token", http.StatusOK, "Admin"},
		{"missing header", "", http.StatusUnauthorized, "Unauthorized - No token provided"},
		{"wrong scheme", "Basic admin-token", http.StatusUnauthorized, "Unauthorized - No token provided"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Unauthorized - No token provided"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "Unauthorized - Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w).Message)
		})
	}
}

func TestAuthenticate_InternalError(t *testing.T) {
	r := authRouter(fakeAuthenticator{err: errors.New("redis down")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := serve(r, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.Empty(t, body.Error)
}

func TestAuthorize(t *testing.T) {
	auth := fakeAuthenticator{callers: map[string]policy.Caller{
		"admin": {ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		"lead":  {ID: primitive.NewObjectID(), Role: models.RoleProjectLead},
	}}
	rec := denials{}
	r := authRouter(auth, rec)

	req := httptest.NewRequest(http.MethodDelete, "/projects/1", nil)
	req.Header.Set("Authorization", "Bearer admin")
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/projects/1", nil)
	req.Header.Set("Authorization", "Bearer lead")
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden - Insufficient permissions", decode(t, w).Message)
	assert.Equal(t, 1, rec["DeleteProject"])
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		err     error
		dev     bool
		status  int
		message string
		detail  string
	}{
		{models.NewValidationError("bad"), false, http.StatusBadRequest, "bad", ""},
		{models.NewInvalidStateError("already"), false, http.StatusBadRequest, "already", ""},
		{models.NewAuthenticationError("who", errors.New("sig")), false, http.StatusUnauthorized, "who", ""},
		{models.NewAuthenticationError("who", errors.New("sig")), true, http.StatusUnauthorized, "who", "sig"},
		{models.NewForbiddenError("no"), false, http.StatusForbidden, "no", ""},
		{models.NewNotFoundError("gone"), false, http.StatusNotFound, "gone", ""},
		{models.NewConflictError("dup"), false, http.StatusConflict, "dup", ""},
		{errors.New("socket closed"), false, http.StatusInternalServerError, "Internal Server Error", ""},
		{errors.New("socket closed"), true, http.StatusInternalServerError, "Internal Server Error", "socket closed"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(tt.dev))
			r.GET("/", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.detail, body.Error)
		})
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", decode(t, w).Message)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Referrer-Policy"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Requests: 3, Window: time.Minute})
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req)
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	}
	w := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "20", w.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests from this IP, please try again later.", decode(t, w).Message)

	// buckets are per client
	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code)
	assert.Equal(t, 2, rl.ClientCount())

	rl.cleanup(time.Now().Add(2 * time.Minute))
	assert.Zero(t, rl.ClientCount())
}

func TestCORS(t *testing.T) {
	for _, origins := range [][]string{{"*"}, {"http://app.pixelforge.test"}} {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://app.pixelforge.test")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		w := serve(r, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://app.pixelforge.test", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	}

	r := gin.New()
	r.Use(CORS([]string{"http://app.pixelforge.test"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
}

type requestLog struct {
	route  string
	status int
}

func (l *requestLog) RecordHTTPRequest(_ string, route string, status int, _ time.Duration) {
	l.route, l.status = route, status
}

func TestLogging_RecordsRoutePattern(t *testing.T) {
	rec := &requestLog{}
	r := gin.New()
	r.Use(Logging(slog.New(slog.NewTextHandler(io.Discard, nil)), rec))
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	serve(r, httptest.NewRequest(http.MethodGet, "/projects/42", nil))
	assert.Equal(t, "/projects/:id", rec.route)
	assert.Equal(t, http.StatusAccepted, rec.status)

	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, "unmatched", rec.route)
	assert.Equal(t, http.StatusNotFound, rec.status)
}
