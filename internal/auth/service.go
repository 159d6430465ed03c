package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/task-management/internal"
)

// Repository is the data access surface the auth service needs.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*User, error)
	LinkProvider(ctx context.Context, userID int64, provider, providerID string) error
	GetMemberships(ctx context.Context, userID int64) ([]MembershipInfo, error)
	HasMembership(ctx context.Context, userID, organizationID int64) (bool, error)
	// GetGrantedPermissions returns internal.ErrNotAMember when the user
	// has no membership in the organization, so callers can distinguish
	// "not in this org" from "no matching permission".
	GetGrantedPermissions(ctx context.Context, userID, organizationID int64) ([]GrantedPermission, error)
}

// OAuthProvider exchanges an authorization code for the external identity.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (accessToken string, err error)
	FetchUserInfo(ctx context.Context, accessToken string) (*ExternalIdentity, error)
}

// ExternalIdentity is the subset of provider userinfo the service uses.
type ExternalIdentity struct {
	ID    string
	Email string
	Name  string
}

type Service struct {
	repo       Repository
	tokens     TokenGenerator
	oauth      OAuthProvider
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, tokens TokenGenerator, oauth OAuthProvider, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		oauth:      oauth,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a password-based account. Duplicate emails fail with a
// conflict regardless of which check catches it first; the unique index on
// users.email backstops the lookup under concurrency.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (int64, error) {
	if err := dto.Validate(); err != nil {
		return 0, err
	}

	if existing, err := s.repo.GetUserByEmail(ctx, dto.Email); err == nil && existing != nil {
		return 0, internal.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return 0, internal.NewInternalError("failed to hash password", err)
	}

	hashStr := string(hash)
	user := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: &hashStr,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return 0, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user.ID, nil
}

// Authenticate validates credentials and issues a session token with no
// active organization selected.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (string, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}

	user, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		return "", internal.ErrInvalidCredentials
	}
	if user.PasswordHash == nil {
		// OAuth-only account; no password to compare against.
		return "", internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(dto.Password)); err != nil {
		return "", internal.ErrInvalidCredentials
	}

	return s.tokens.Issue(user.ID, user.Email, nil)
}

// Me resolves the token to the user's profile and memberships.
func (s *Service) Me(ctx context.Context, token string) (*ProfileDTO, error) {
	session, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.repo.GetMemberships(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to load memberships", "error", err, "user_id", user.ID)
		return nil, err
	}

	return &ProfileDTO{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Memberships: memberships,
	}, nil
}

// SwitchOrganization re-issues the session token scoped to the target
// organization after verifying membership. No stored session mutates.
func (s *Service) SwitchOrganization(ctx context.Context, dto SwitchOrganizationDTO) (string, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}

	session, err := s.tokens.Verify(dto.Token)
	if err != nil {
		return "", err
	}

	member, err := s.repo.HasMembership(ctx, session.UserID, dto.OrganizationID)
	if err != nil {
		return "", err
	}
	if !member {
		return "", internal.ErrNotAMember
	}

	return s.tokens.Issue(session.UserID, session.Email, &dto.OrganizationID)
}

// CheckPermissions evaluates the requested actions/resources against the
// permissions granted through the caller's role in the token's active
// organization.
func (s *Service) CheckPermissions(ctx context.Context, dto CheckPermissionsDTO) (bool, error) {
	if err := dto.Validate(); err != nil {
		return false, err
	}

	session, err := s.tokens.Verify(dto.Token)
	if err != nil {
		return false, err
	}
	if session.OrganizationID == nil {
		return false, ValidationError{Msg: "token has no active organization"}
	}

	granted, err := s.repo.GetGrantedPermissions(ctx, session.UserID, *session.OrganizationID)
	if err != nil {
		return false, err
	}

	return Authorize(granted, dto.Actions, dto.Resources), nil
}

// VerifyToken is used by the auth middleware.
func (s *Service) VerifyToken(token string) (*internal.Session, error) {
	return s.tokens.Verify(token)
}

// OAuthRedirectURL issues a signed state nonce and builds the provider
// authorization URL.
func (s *Service) OAuthRedirectURL() (string, error) {
	state, err := s.tokens.IssueState()
	if err != nil {
		return "", internal.NewInternalError("failed to issue oauth state", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// LoginWithGoogle verifies the state nonce, exchanges the code and signs
// the caller in, creating or linking the account as needed. The verified
// provider identity is the single source of the user.
func (s *Service) LoginWithGoogle(ctx context.Context, state, code string) (string, error) {
	if err := s.tokens.VerifyState(state); err != nil {
		return "", err
	}
	if code == "" {
		return "", ValidationError{Msg: "code is required"}
	}

	accessToken, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", "error", err)
		return "", internal.NewUnauthorizedError("oauth exchange failed", internal.ErrCodeInvalidCredentials)
	}

	identity, err := s.oauth.FetchUserInfo(ctx, accessToken)
	if err != nil {
		s.logger.Error("oauth userinfo fetch failed", "error", err)
		return "", internal.NewUnauthorizedError("oauth userinfo fetch failed", internal.ErrCodeInvalidCredentials)
	}

	user, err := s.findOrCreateOAuthUser(ctx, identity)
	if err != nil {
		return "", err
	}

	return s.tokens.Issue(user.ID, user.Email, nil)
}

func (s *Service) findOrCreateOAuthUser(ctx context.Context, identity *ExternalIdentity) (*User, error) {
	const provider = "google"

	if user, err := s.repo.GetUserByProvider(ctx, provider, identity.ID); err == nil {
		return user, nil
	} else if !errors.Is(err, internal.ErrUserNotFound) {
		return nil, err
	}

	// First provider login for an existing email links the account.
	if user, err := s.repo.GetUserByEmail(ctx, identity.Email); err == nil {
		if err := s.repo.LinkProvider(ctx, user.ID, provider, identity.ID); err != nil {
			return nil, err
		}
		return user, nil
	} else if !errors.Is(err, internal.ErrUserNotFound) {
		return nil, err
	}

	providerName := provider
	providerID := identity.ID
	user := &User{
		Email:      identity.Email,
		Name:       identity.Name,
		Provider:   &providerName,
		ProviderID: &providerID,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created via oauth", "user_id", user.ID, "provider", provider)
	return user, nil
}

// GenerateRandomToken generates a cryptographically secure random token.
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
