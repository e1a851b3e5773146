package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/domain"
	"userhub/internal/events"
	"userhub/internal/repository"
)

const minPasswordLength = 8

var (
	// ErrMissingCredentials indicates that the email or the password was empty.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStorageUnavailable wraps any failure of the underlying store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUserAlreadyExists is returned when the email is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput is returned when account fields fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// CreateUserInput carries the fields needed to create an account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
}

// Validate trims the profile fields and checks every field.
func (in *CreateUserInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLength, 72)),
	)
}

// UpdateUserInput carries the mutable profile fields.
type UpdateUserInput struct {
	Email string
	Name  string
}

// Validate trims the profile fields and checks them.
func (in *UpdateUserInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
	)
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in CreateUserInput) (*domain.UserSummary, error)
	Authenticate(ctx context.Context, email, password string) (*domain.UserSummary, error)
	List(ctx context.Context) ([]domain.UserSummary, error)
	GetByID(ctx context.Context, id int64) (*domain.UserSummary, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) (*domain.UserSummary, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users     repository.UserRepository
	publisher events.Publisher
	logger    logrus.FieldLogger
	hashCost  int
}

// Option customizes the user service.
type Option func(*userService)

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *userService) {
		s.hashCost = cost
	}
}

func NewUserService(users repository.UserRepository, publisher events.Publisher, logger logrus.FieldLogger, opts ...Option) UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &userService{
		users:     users,
		publisher: publisher,
		logger:    logger,
		hashCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *userService) Register(ctx context.Context, in CreateUserInput) (*domain.UserSummary, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, storageError(err)
	}

	s.publish(ctx, events.TopicUserCreated, user.ID, user.Email)
	return user.Summary(), nil
}

// Authenticate resolves an email/password pair to the account it belongs to.
// Unknown emails and wrong passwords fail identically with ErrInvalidCredentials.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.UserSummary, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.publish(ctx, events.TopicUserSignedIn, user.ID, user.Email)
	return user.Summary(), nil
}

func (s *userService) List(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	out := make([]domain.UserSummary, len(users))
	for i := range users {
		out[i] = *users[i].Summary()
	}
	return out, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.UserSummary, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return user.Summary(), nil
}

func (s *userService) Update(ctx context.Context, id int64, in UpdateUserInput) (*domain.UserSummary, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	user.Email = in.Email
	user.Name = in.Name

	if err := s.users.Update(ctx, user); err != nil {
		return nil, storageError(err)
	}

	s.publish(ctx, events.TopicUserUpdated, user.ID, user.Email)
	return user.Summary(), nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return storageError(err)
	}
	s.publish(ctx, events.TopicUserDeleted, id, "")
	return nil
}

func (s *userService) publish(ctx context.Context, topic string, id int64, email string) {
	if err := s.publisher.Publish(ctx, topic, events.UserEvent{UserID: id, Email: email}); err != nil {
		s.logger.WithError(err).WithField("topic", topic).Warn("publish user event")
	}
}

func storageError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrUserAlreadyExists
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}
