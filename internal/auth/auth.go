package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/task-management/internal"
)

// User is the account identity. PasswordHash is nil for accounts created
// through an external OAuth provider.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-" gorm:"column:password_hash"`
	Provider     *string   `json:"provider,omitempty"`
	ProviderID   *string   `json:"-" gorm:"column:provider_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// MembershipInfo is the flattened membership view returned by /auth/me.
type MembershipInfo struct {
	OrganizationID   int64  `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	Role             string `json:"role"`
}

// GrantedPermission is one (action, resource) pair granted through a role.
type GrantedPermission struct {
	Action   string
	Resource string
}

// Claims carried by the session token. The token is the sole bearer of
// session and active-organization state between requests.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	Purpose        string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

const statePurpose = "oauth-state"

// TokenGenerator signs and verifies session tokens and the short-lived
// OAuth state nonce.
type TokenGenerator interface {
	Issue(userID int64, email string, organizationID *int64) (string, error)
	Verify(tokenString string) (*internal.Session, error)
	IssueState() (string, error)
	VerifyState(state string) error
}

type JWTTokenGenerator struct {
	Secret     []byte
	SessionTTL time.Duration
	StateTTL   time.Duration
}

func NewJWTTokenGenerator(secret string, sessionTTL, stateTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:     []byte(secret),
		SessionTTL: sessionTTL,
		StateTTL:   stateTTL,
	}
}

// Issue creates a signed session token for the user, optionally carrying
// the active organization. Switching organizations re-issues; nothing is
// stored server-side.
func (j *JWTTokenGenerator) Issue(userID int64, email string, organizationID *int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: strconv.FormatInt(userID, 10),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}
	if organizationID != nil {
		claims.OrganizationID = strconv.FormatInt(*organizationID, 10)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Verify parses and validates a session token. Any failure surfaces as
// ErrInvalidToken or ErrTokenExpired; it never panics into the caller.
func (j *JWTTokenGenerator) Verify(tokenString string) (*internal.Session, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, internal.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	session := &internal.Session{UserID: userID, Email: claims.Email}
	if claims.OrganizationID != "" {
		orgID, err := strconv.ParseInt(claims.OrganizationID, 10, 64)
		if err != nil {
			return nil, internal.ErrInvalidToken
		}
		session.OrganizationID = &orgID
	}

	return session, nil
}

// IssueState creates the short-lived signed nonce used as the OAuth
// state parameter, so no server-side state store is needed.
func (j *JWTTokenGenerator) IssueState() (string, error) {
	now := time.Now()
	claims := &Claims{
		Purpose: statePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.StateTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        fmt.Sprintf("%d", now.UnixNano()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTTokenGenerator) VerifyState(state string) error {
	claims, err := j.parse(state)
	if err != nil {
		return err
	}
	if claims.Purpose != statePurpose {
		return internal.ErrInvalidToken
	}
	return nil
}

func (j *JWTTokenGenerator) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
