package service

import (
	"context"
	"errors"
	"sync"

	userserrors "gatherly/internal/users/errors"
	"gatherly/internal/users/repository"
	"gatherly/pkg/auth"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const invalidCredentials = "Invalid email or password"

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Authenticate(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	validate *validator.Validate
	cfg      *config.Config

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(repo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		repo:     repo,
		validate: validation.New(cfg.Log),
		cfg:      cfg,
	}
}

func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Name = sanitizer.NormalizeName(req.Name)

	if err := validation.Struct(s.validate, req); err != nil {
		s.cfg.Log.Warn("Registration validation failed",
			"email", req.Email,
			"error", err,
		)
		return nil, validationFailed(err)
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	u := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("An account with this email already exists")
		}
		s.cfg.Log.Error("Failed to create user",
			"email", u.Email,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered successfully",
		"id", u.ID,
		"email", u.Email,
	)

	return u, nil
}

// Authenticate checks credentials. Unknown emails still pay for a bcrypt
// comparison so both failure paths take similar time.
func (s *userService) Authenticate(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	email := sanitizer.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			_, _ = auth.CheckPassword(s.dummy(), req.Password)
			s.cfg.Log.Debug("Login for unknown email", "email", email)
			return nil, apperrors.Unauthorized(invalidCredentials)
		}
		s.cfg.Log.Error("Failed to look up user for login",
			"email", email,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to authenticate", err)
	}

	ok, err := auth.CheckPassword(u.PasswordHash, req.Password)
	if err != nil {
		s.cfg.Log.Error("Stored password hash is unusable",
			"id", u.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to authenticate", err)
	}
	if !ok {
		s.cfg.Log.Warn("Login with wrong password", "id", u.ID)
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	s.cfg.Log.Info("User logged in", "id", u.ID)
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		s.cfg.Log.Error("Failed to get user by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	return u, nil
}

func (s *userService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("gatherly-dummy-password", s.cfg.BcryptCost)
	})
	return s.dummyHash
}

func validationFailed(err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs.Fields()
	}
	return apperrors.Validation("User validation failed", details)
}
