package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgTokenExpired       = "Unauthorized - Token expired"
	msgTokenInvalid       = "Unauthorized - Invalid token"
	msgTokenRevoked       = "Unauthorized - Token has been revoked"
	msgUserGone           = "Unauthorized - User not found"
)

type AuthService struct {
	users   UserStore
	tokens  *utils.TokenIssuer
	revoker TokenRevoker
	now     func() time.Time
}

// NewAuthService wires token issuing and verification. revoker may be nil, in which case
// logout is accepted but tokens stay valid until they expire.
func NewAuthService(users UserStore, tokens *utils.TokenIssuer, revoker TokenRevoker) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		now:     time.Now,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, models.NewValidationError("Please provide email and password")
	}

	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewAuthenticationError(msgInvalidCredentials, nil)
	}

	if err := utils.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, utils.ErrPasswordInvalid) {
			slog.WarnContext(ctx, "stored password hash unreadable",
				slog.String("user_id", user.ID.Hex()),
				slog.Any("error", err),
			)
		}
		return nil, models.NewAuthenticationError(msgInvalidCredentials, nil)
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Authenticate turns a bearer token into the Caller it represents. The user record is
// reloaded so role changes and deletions take effect immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (policy.Caller, *utils.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return policy.Caller{}, nil, models.NewAuthenticationError(msgTokenExpired, err)
		}
		return policy.Caller{}, nil, models.NewAuthenticationError(msgTokenInvalid, err)
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return policy.Caller{}, nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return policy.Caller{}, nil, models.NewAuthenticationError(msgTokenRevoked, nil)
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return policy.Caller{}, nil, models.NewAuthenticationError(msgTokenInvalid, err)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return policy.Caller{}, nil, err
	}
	if user == nil {
		return policy.Caller{}, nil, models.NewAuthenticationError(msgUserGone, nil)
	}

	return policy.CallerFromUser(user), claims, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *utils.Claims) error {
	if s.revoker == nil || claims == nil {
		return nil
	}
	return s.revoker.Blacklist(ctx, claims.ID, claims.Remaining(s.now()))
}

// Me returns the caller's own user record.
func (s *AuthService) Me(ctx context.Context, caller policy.Caller) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User not found")
	}
	return user, nil
}
