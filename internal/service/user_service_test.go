package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/domain"
	"userhub/internal/events"
	"userhub/internal/repository"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64
	err    error
	calls  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]domain.User)}
}

func (f *fakeUserRepo) Init(context.Context) error { return nil }

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return 0, repository.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return user.ID, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.User
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, u := range f.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) seed(t *testing.T, email, name, password string) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Email: email, Name: name, PasswordHash: string(hash)}
	_, err = f.Create(context.Background(), user)
	require.NoError(t, err)
	return *user
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ events.UserEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func newTestService(repo repository.UserRepository, pub events.Publisher) UserService {
	logger, _ := test.NewNullLogger()
	return NewUserService(repo, pub, logger, WithHashCost(bcrypt.MinCost))
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newFakeUserRepo()
	seeded := repo.seed(t, "a@x.com", "Ana", "secret")
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)

	user, err := svc.Authenticate(context.Background(), "a@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, &domain.UserSummary{ID: seeded.ID, Email: "a@x.com", Name: "Ana"}, user)
	assert.Equal(t, []string{events.TopicUserSignedIn}, pub.topics)
}

func TestAuthenticateWrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	repo := newFakeUserRepo()
	repo.seed(t, "a@x.com", "Ana", "secret")
	svc := newTestService(repo, nil)

	_, wrongPassword := svc.Authenticate(context.Background(), "a@x.com", "not-secret")
	_, unknownEmail := svc.Authenticate(context.Background(), "b@x.com", "secret")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticateNeverTrustsPlaintext(t *testing.T) {
	repo := newFakeUserRepo()
	// a record whose stored credential equals the plaintext must not pass
	_, err := repo.Create(context.Background(), &domain.User{Email: "p@x.com", Name: "P", PasswordHash: "secret"})
	require.NoError(t, err)
	svc := newTestService(repo, nil)

	_, err = svc.Authenticate(context.Background(), "p@x.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateMissingCredentialsSkipsStorage(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil)

	for _, tc := range []struct{ email, password string }{
		{"", "secret"},
		{"a@x.com", ""},
		{"   ", "secret"},
		{"", ""},
	} {
		_, err := svc.Authenticate(context.Background(), tc.email, tc.password)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	}
	assert.Zero(t, repo.calls)
}

func TestAuthenticateStorageFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo, nil)

	_, err := svc.Authenticate(context.Background(), "a@x.com", "secret")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)

	user, err := svc.Register(context.Background(), CreateUserInput{Email: " n@x.com ", Name: " Nia ", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "n@x.com", user.Email)
	assert.Equal(t, "Nia", user.Name)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "longenough", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")))
	assert.Equal(t, []string{events.TopicUserCreated}, pub.topics)

	_, err = svc.Authenticate(context.Background(), "n@x.com", "longenough")
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), nil)

	for _, in := range []CreateUserInput{
		{Email: "", Name: "A", Password: "longenough"},
		{Email: "not-an-email", Name: "A", Password: "longenough"},
		{Email: "a@x.com", Name: "", Password: "longenough"},
		{Email: "a@x.com", Name: "A", Password: "short"},
	} {
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	repo.seed(t, "a@x.com", "Ana", "secret")
	svc := newTestService(repo, nil)

	_, err := svc.Register(context.Background(), CreateUserInput{Email: "a@x.com", Name: "Other", Password: "longenough"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	a := repo.seed(t, "a@x.com", "Ana", "secret")
	b := repo.seed(t, "b@x.com", "Bea", "secret")
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{
		{ID: a.ID, Email: "a@x.com", Name: "Ana"},
		{ID: b.ID, Email: "b@x.com", Name: "Bea"},
	}, list)

	got, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	_, err = svc.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	updated, err := svc.Update(ctx, a.ID, UpdateUserInput{Email: "ana@x.com", Name: "Ana Maria"})
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", updated.Email)

	stored, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.PasswordHash, stored.PasswordHash)

	_, err = svc.Update(ctx, b.ID, UpdateUserInput{Email: "ana@x.com", Name: "Bea"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Update(ctx, 404, UpdateUserInput{Email: "z@x.com", Name: "Z"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Update(ctx, a.ID, UpdateUserInput{Email: "bad", Name: "Z"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), ErrUserNotFound)

	assert.Equal(t, []string{events.TopicUserUpdated, events.TopicUserDeleted}, pub.topics)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newFakeUserRepo()
	repo.seed(t, "a@x.com", "Ana", "secret")
	logger, hook := test.NewNullLogger()
	svc := NewUserService(repo, &recordingPublisher{err: errors.New("broker down")}, logger)

	_, err := svc.Authenticate(context.Background(), "a@x.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "publish user event", hook.LastEntry().Message)
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("disk I/O error")
	svc := newTestService(repo, nil)

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), ErrStorageUnavailable)
}
