package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/task-management/internal"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock repository for testing
type mockAuthRepository struct {
	usersByEmail  map[string]*User
	usersByID     map[int64]*User
	memberships   map[int64][]MembershipInfo
	memberOf      map[int64]map[int64]bool
	granted       map[int64]map[int64][]GrantedPermission
	nextID        int64
	returnError   bool
	errorToReturn error
}

func newMockAuthRepository() *mockAuthRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	hashStr := string(hash)

	alice := &User{ID: 1, Email: "alice@example.com", Name: "Alice", PasswordHash: &hashStr}
	bob := &User{ID: 2, Email: "bob@example.com", Name: "Bob", PasswordHash: &hashStr}
	oauthOnly := &User{ID: 3, Email: "oauth@example.com", Name: "OAuth Only"}

	return &mockAuthRepository{
		usersByEmail: map[string]*User{
			alice.Email:     alice,
			bob.Email:       bob,
			oauthOnly.Email: oauthOnly,
		},
		usersByID: map[int64]*User{1: alice, 2: bob, 3: oauthOnly},
		memberships: map[int64][]MembershipInfo{
			1: {{OrganizationID: 10, OrganizationName: "Acme", Role: "administrator"}},
		},
		memberOf: map[int64]map[int64]bool{
			1: {10: true},
		},
		granted: map[int64]map[int64][]GrantedPermission{
			1: {10: {
				{Action: "read", Resource: "tasks"},
				{Action: "update", Resource: "tasks"},
			}},
		},
		nextID: 4,
	}
}

func (m *mockAuthRepository) CreateUser(ctx context.Context, user *User) error {
	if m.returnError {
		return m.errorToReturn
	}
	user.ID = m.nextID
	m.nextID++
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockAuthRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockAuthRepository) GetUserByProvider(ctx context.Context, provider, providerID string) (*User, error) {
	for _, user := range m.usersByID {
		if user.Provider != nil && *user.Provider == provider && user.ProviderID != nil && *user.ProviderID == providerID {
			return user, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockAuthRepository) LinkProvider(ctx context.Context, userID int64, provider, providerID string) error {
	user, ok := m.usersByID[userID]
	if !ok {
		return internal.ErrUserNotFound
	}
	user.Provider = &provider
	user.ProviderID = &providerID
	return nil
}

func (m *mockAuthRepository) GetMemberships(ctx context.Context, userID int64) ([]MembershipInfo, error) {
	return m.memberships[userID], nil
}

func (m *mockAuthRepository) HasMembership(ctx context.Context, userID, organizationID int64) (bool, error) {
	return m.memberOf[userID][organizationID], nil
}

func (m *mockAuthRepository) GetGrantedPermissions(ctx context.Context, userID, organizationID int64) ([]GrantedPermission, error) {
	orgs, ok := m.granted[userID]
	if !ok {
		return nil, internal.ErrNotAMember
	}
	granted, ok := orgs[organizationID]
	if !ok {
		return nil, internal.ErrNotAMember
	}
	return granted, nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockAuthRepository
		tokenGen *JWTTokenGenerator
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockAuthRepository()
		tokenGen = NewJWTTokenGenerator("test-secret-at-least-32-characters", time.Hour, 10*time.Minute)
		service = NewService(mockRepo, tokenGen, nil, bcrypt.MinCost, slog.Default())
		ctx = context.Background()
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create a user and return its id", func() {
			userID, err := service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Password: "password123",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(userID).To(gomega.BeNumerically(">", 0))
		})

		ginkgo.It("should reject a duplicate email", func() {
			_, err := service.Register(ctx, RegisterDTO{
				Email:    "alice@example.com",
				Password: "password123",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserExists))
		})

		ginkgo.It("should reject a short password", func() {
			_, err := service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Password: "short",
			})

			gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("should return a token for valid credentials", func() {
			token, err := service.Authenticate(ctx, LoginDTO{
				Email:    "alice@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(token).ToNot(gomega.BeEmpty())

			session, err := tokenGen.Verify(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(session.UserID).To(gomega.Equal(int64(1)))
			gomega.Expect(session.OrganizationID).To(gomega.BeNil())
		})

		ginkgo.It("should reject a wrong password", func() {
			_, err := service.Authenticate(ctx, LoginDTO{
				Email:    "alice@example.com",
				Password: "wrong_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("should reject an unknown email", func() {
			_, err := service.Authenticate(ctx, LoginDTO{
				Email:    "nobody@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("should reject password login for an oauth-only account", func() {
			_, err := service.Authenticate(ctx, LoginDTO{
				Email:    "oauth@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})
	})

	ginkgo.Describe("Me", func() {
		ginkgo.It("should return profile and memberships", func() {
			token, err := tokenGen.Issue(1, "alice@example.com", nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			profile, err := service.Me(ctx, token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(profile.ID).To(gomega.Equal(int64(1)))
			gomega.Expect(profile.Memberships).To(gomega.HaveLen(1))
			gomega.Expect(profile.Memberships[0].OrganizationName).To(gomega.Equal("Acme"))
		})

		ginkgo.It("should reject a tampered token", func() {
			token, err := tokenGen.Issue(1, "alice@example.com", nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Me(ctx, token+"x")

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("SwitchOrganization", func() {
		ginkgo.It("should re-issue the token scoped to the organization", func() {
			token, err := tokenGen.Issue(1, "alice@example.com", nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			scoped, err := service.SwitchOrganization(ctx, SwitchOrganizationDTO{
				Token:          token,
				OrganizationID: 10,
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			session, err := tokenGen.Verify(scoped)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(session.OrganizationID).ToNot(gomega.BeNil())
			gomega.Expect(*session.OrganizationID).To(gomega.Equal(int64(10)))
		})

		ginkgo.It("should refuse a non-member", func() {
			token, err := tokenGen.Issue(2, "bob@example.com", nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.SwitchOrganization(ctx, SwitchOrganizationDTO{
				Token:          token,
				OrganizationID: 10,
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAMember))
		})
	})

	ginkgo.Describe("CheckPermissions", func() {
		var orgID int64 = 10

		ginkgo.It("should allow a granted action/resource pair", func() {
			token, err := tokenGen.Issue(1, "alice@example.com", &orgID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			allowed, err := service.CheckPermissions(ctx, CheckPermissionsDTO{
				Token:     token,
				Actions:   []string{"read"},
				Resources: []string{"tasks"},
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(allowed).To(gomega.BeTrue())
		})

		ginkgo.It("should deny an ungranted pair", func() {
			token, err := tokenGen.Issue(1, "alice@example.com", &orgID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			allowed, err := service.CheckPermissions(ctx, CheckPermissionsDTO{
				Token:     token,
				Actions:   []string{"delete"},
				Resources: []string{"roles"},
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(allowed).To(gomega.BeFalse())
		})

		ginkgo.It("should surface not-a-member distinctly", func() {
			token, err := tokenGen.Issue(2, "bob@example.com", &orgID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.CheckPermissions(ctx, CheckPermissionsDTO{
				Token:     token,
				Actions:   []string{"read"},
				Resources: []string{"tasks"},
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAMember))
		})

		ginkgo.It("should require an active organization in the token", func() {
			token, err := tokenGen.Issue(1, "alice@example.com", nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.CheckPermissions(ctx, CheckPermissionsDTO{
				Token:     token,
				Actions:   []string{"read"},
				Resources: []string{"tasks"},
			})

			gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
		})
	})
})

var _ = ginkgo.Describe("JWTTokenGenerator", func() {
	var tokenGen *JWTTokenGenerator

	ginkgo.BeforeEach(func() {
		tokenGen = NewJWTTokenGenerator("test-secret-at-least-32-characters", time.Hour, 10*time.Minute)
	})

	ginkgo.It("should round-trip user and organization", func() {
		orgID := int64(42)
		token, err := tokenGen.Issue(7, "user@example.com", &orgID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		session, err := tokenGen.Verify(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(session.UserID).To(gomega.Equal(int64(7)))
		gomega.Expect(session.Email).To(gomega.Equal("user@example.com"))
		gomega.Expect(*session.OrganizationID).To(gomega.Equal(int64(42)))
	})

	ginkgo.It("should reject a token signed with another secret", func() {
		other := NewJWTTokenGenerator("another-secret-also-32-characters!", time.Hour, 10*time.Minute)
		token, err := other.Issue(7, "user@example.com", nil)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = tokenGen.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
	})

	ginkgo.It("should reject an expired token", func() {
		expiredGen := NewJWTTokenGenerator("test-secret-at-least-32-characters", -time.Minute, 10*time.Minute)
		token, err := expiredGen.Issue(7, "user@example.com", nil)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = tokenGen.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
	})

	ginkgo.It("should not accept a state nonce as a session token", func() {
		state, err := tokenGen.IssueState()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(tokenGen.VerifyState(state)).To(gomega.Succeed())
		_, err = tokenGen.Verify(state)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
	})

	ginkgo.It("should not accept a session token as a state nonce", func() {
		token, err := tokenGen.Issue(7, "user@example.com", nil)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(tokenGen.VerifyState(token)).To(gomega.MatchError(internal.ErrInvalidToken))
	})
})

var _ = ginkgo.Describe("Authorize", func() {
	granted := []GrantedPermission{
		{Action: "read", Resource: "tasks"},
		{Action: "update", Resource: "tasks"},
	}

	ginkgo.It("should allow when action and resource intersect", func() {
		gomega.Expect(Authorize(granted, []string{"read"}, []string{"tasks"})).To(gomega.BeTrue())
	})

	ginkgo.It("should allow when any requested pair matches", func() {
		gomega.Expect(Authorize(granted, []string{"delete", "update"}, []string{"roles", "tasks"})).To(gomega.BeTrue())
	})

	ginkgo.It("should deny when the resource does not match", func() {
		gomega.Expect(Authorize(granted, []string{"read"}, []string{"users"})).To(gomega.BeFalse())
	})

	ginkgo.It("should deny an empty granted set", func() {
		gomega.Expect(Authorize(nil, []string{"read"}, []string{"tasks"})).To(gomega.BeFalse())
	})

	ginkgo.It("should deny empty requested sets", func() {
		gomega.Expect(Authorize(granted, nil, nil)).To(gomega.BeFalse())
	})
})
