package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"

	"wte-api-server/internal/models"
	"wte-api-server/internal/store"
)

// ErrInvalidCredentials is the single outcome of a failed login.
var ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned when registering an existing email.
var ErrEmailTaken = goerrors.New("Email already used", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrSigningDisabled is returned by Login on a service built without a
// TokenService.
var ErrSigningDisabled = goerrors.New("token signing is not configured", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal)

// dummyHash is compared against when the email is unknown so that both login
// failure paths pay for one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("wte-unknown-admin")
	if err != nil {
		return ""
	}
	return hash
})

// UserStore persists admin identities.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.AdminUser) error
	FindUserByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// Credentials is the register/login pair for a single admin identity.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the presence and shape of the credentials.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Password, validation.Required),
	)
}

// Service registers admins and exchanges credentials for tokens.
type Service struct {
	users  UserStore
	tokens *TokenService
}

// NewService builds a credential service. tokens may be nil for callers that
// only register admins, such as the seeder; Login then fails with
// ErrSigningDisabled and Authenticate rejects every token.
func NewService(users UserStore, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register stores a new admin. Emails are compared exactly as stored.
func (s *Service) Register(ctx context.Context, email, password string) (*models.AdminUser, error) {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := goerrors.ValidateWithOzzo(creds.Validate, "invalid admin credentials"); err != nil {
		return nil, err
	}

	existing, err := s.users.FindUserByEmail(ctx, creds.Email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrEmailTaken
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up admin")
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &models.AdminUser{Email: creds.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create admin")
	}
	return user, nil
}

// Login returns a signed token when the password matches the stored hash.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			CheckPasswordHash(password, dummyHash())
			return "", ErrInvalidCredentials
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up admin")
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	if s.tokens == nil {
		return "", ErrSigningDisabled
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token")
	}
	return token, nil
}

// Authenticate verifies a bearer token. Every failure is ErrInvalidToken.
func (s *Service) Authenticate(token string) (Identity, error) {
	if s.tokens == nil {
		return Identity{}, ErrInvalidToken
	}
	return s.tokens.Verify(token)
}
