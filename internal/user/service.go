package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=user
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type RegisterParams struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            Role
}

// Register creates an account: unique username, unique email, and a
// matching password confirmation are all required.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)

	if p.Username == "" || p.Email == "" || p.Password == "" {
		return nil, errors.New("username, email and password are required")
	}

	if _, err := mail.ParseAddress(p.Email); err != nil {
		return nil, errors.New("invalid email address")
	}

	if p.Password != p.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	taken, err := s.repo.ExistsByUsername(ctx, p.Username)
	if err != nil {
		return nil, err
	}

	if taken {
		return nil, ErrUsernameTaken
	}

	inUse, err := s.repo.ExistsByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}

	if inUse {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     p.Username,
		Email:        p.Email,
		Role:         p.Role.OrDefault(),
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Authenticate verifies the credentials and returns the account. Both
// an unknown email and a wrong password yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	return s.repo.UpdateRole(ctx, id, role)
}

// EnsureAdmin creates the initial administrator account when no
// account with the given email or username exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*User, bool, error) {
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	u, err := s.Register(ctx, RegisterParams{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		Role:            RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}

	return u, true, nil
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(hash), nil
}
