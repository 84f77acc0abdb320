package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/server/auth"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shareplaces/internal/validation"
)

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Image    *Image `json:"image" validate:"required"`
}

// LoginInput is a sign-in request.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	UserID string
	Email  string
	Token  string
}

// UserService provides account operations:
// - Register: create a user with an avatar and mint a token
// - Login: verify credentials and mint a token
// - ListUsers: public user listing
type UserService struct {
	repomanager   repomanager.RepositoryManager
	blobs         BlobStore
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
	passwordCost  int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(m repomanager.RepositoryManager, blobs BlobStore, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		repomanager:   m,
		blobs:         blobs,
		logger:        logger,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidity,
		passwordCost:  cfg.PasswordCost,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. A taken email yields common.ErrConflict; the
// storage constraint decides, the lookup before it only saves an upload.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.repomanager.Conn())

	_, err := repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email %s is already registered", common.ErrConflict, in.Email)
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("%w: find user: %v", common.ErrInternal, err)
	}

	hash, err := auth.HashPassword(in.Password, s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	avatar, err := s.blobs.Upload(ctx, in.Image.Data, in.Image.ContentType)
	if err != nil {
		if errors.Is(err, common.ErrBadUpload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: upload avatar: %v", common.ErrInternal, err)
	}

	u, err := repo.Insert(ctx, &models.User{
		UserName:     in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		ImageURL:     avatar.URL,
		ImageKey:     avatar.Key,
	})
	if err != nil {
		s.discardBlob(ctx, avatar.Key)
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: email %s is already registered", common.ErrConflict, in.Email)
		}
		return nil, fmt.Errorf("%w: create user: %v", common.ErrInternal, err)
	}

	return s.issue(u)
}

// Login checks the credentials. An unknown email is common.ErrNotFound, a
// wrong password common.ErrUnauthenticated.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.repomanager.Conn()).FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: no user with this email", common.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: find user: %v", common.ErrInternal, err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, common.ErrUnauthenticated
	}

	return s.issue(u)
}

// ListUsers returns every user; password hashes stay in the repository
// model and are never rendered.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.repomanager.Conn()).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", common.ErrInternal, err)
	}
	return users, nil
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(u.ID, u.Email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", common.ErrInternal, err)
	}
	return &AuthResult{UserID: u.ID, Email: u.Email, Token: token}, nil
}

func (s *UserService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "failed to delete orphaned avatar", "key", key, "error", err)
	}
}
