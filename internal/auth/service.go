// Package auth implements signup, login and token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"

	"busticket/internal/errs"
	"busticket/internal/models"
	"busticket/internal/password"
	"busticket/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterInput is a signup request. Password is also capped at 72 bytes,
// the bcrypt limit.
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserView is the public projection of a user. It never carries the hash.
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func viewOf(u models.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email}
}

const maxPasswordBytes = 72

type Service struct {
	gw       *storage.Gateway
	hasher   password.Hasher
	tokens   *TokenIssuer
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(gw *storage.Gateway, hasher password.Hasher, tokens *TokenIssuer, log *zap.Logger) *Service {
	return &Service{
		gw:       gw,
		hasher:   hasher,
		tokens:   tokens,
		validate: errs.NewValidator(),
		log:      log.Named("auth"),
	}
}

// Register creates a user account. An email that is already registered
// yields errs.ErrDuplicateEmail; a taken username yields
// errs.ErrDuplicateUsername. Concurrent signups with the same email are
// settled by the unique index, so exactly one of them succeeds.
func (s *Service) Register(ctx context.Context, in RegisterInput) (UserView, error) {
	if err := s.validate.Struct(in); err != nil {
		return UserView{}, errs.FromValidation(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return UserView{}, errs.Validation("validation failed",
			errs.FieldError{Field: "password", Error: "must be at most 72 bytes"})
	}

	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return UserView{}, err
	}
	defer sess.Close()

	var existing models.User
	err = sess.DB().Where("email = ?", in.Email).Take(&existing).Error
	switch {
	case err == nil:
		return UserView{}, errs.ErrDuplicateEmail
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return UserView{}, storage.Classify(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return UserView{}, errs.Internal(fmt.Errorf("hash password: %w", err))
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := sess.DB().Create(&user).Error; err != nil {
		return UserView{}, storage.Classify(err)
	}
	if err := sess.Commit(); err != nil {
		return UserView{}, err
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	return viewOf(user), nil
}

// Login checks credentials and issues a fresh token pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plain string) (TokenPair, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	defer sess.Close()

	var user models.User
	err = sess.DB().Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, errs.ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, storage.Classify(err)
	}

	if !s.hasher.Verify(plain, user.PasswordHash) {
		return TokenPair{}, errs.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return TokenPair{}, errs.Internal(err)
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair, provided the user
// still exists.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, errs.Unauthorized("invalid or expired refresh token")
	}

	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	defer sess.Close()

	var user models.User
	err = sess.DB().Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, errs.Unauthorized("user not found")
	}
	if err != nil {
		return TokenPair{}, storage.Classify(err)
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return TokenPair{}, errs.Internal(err)
	}
	return pair, nil
}

// User returns the public view of a user by id.
func (s *Service) User(ctx context.Context, id uint) (UserView, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return UserView{}, err
	}
	defer sess.Close()

	var user models.User
	err = sess.DB().Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserView{}, errs.NotFound("user not found")
	}
	if err != nil {
		return UserView{}, storage.Classify(err)
	}
	return viewOf(user), nil
}
