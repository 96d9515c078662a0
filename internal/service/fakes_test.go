package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/limiter"
	"github.com/and161185/totp-keeper/internal/model"
	"github.com/and161185/totp-keeper/internal/repository"
)

// fakeStore keeps committed users and events; fakeTx buffers writes until Commit.
type fakeStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*model.User
	events map[uuid.UUID]*model.Event

	createErr error
	getErr    error

	beginErr    error
	commitErr   error
	eventErr    error
	metadataErr error

	begins int
	lastTx *fakeTx
	calls  []string
}

func newFakeStore(users ...*model.User) *fakeStore {
	s := &fakeStore{users: map[uuid.UUID]*model.User{}, events: map[uuid.UUID]*model.Event{}}
	for _, u := range users {
		c := *u
		s.users[u.ID] = &c
	}
	return s
}

func (s *fakeStore) user(id uuid.UUID) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *fakeStore) eventList() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}

type fakeTx struct {
	store  *fakeStore
	users  map[uuid.UUID]*model.User
	events map[uuid.UUID]*model.Event

	committed  bool
	rolledBack bool
	releases   int
	releaseCtx context.Context
}

var _ repository.Tx = (*fakeTx)(nil)

func (t *fakeTx) Commit(context.Context) error {
	t.store.calls = append(t.store.calls, "commit")
	if t.store.commitErr != nil {
		t.rolledBack = true
		return t.store.commitErr
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, u := range t.users {
		t.store.users[id] = u
	}
	for id, e := range t.events {
		t.store.events[id] = e
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.users, t.events = nil, nil
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Release(ctx context.Context) {
	t.releases++
	t.releaseCtx = ctx
	if !t.committed && !t.rolledBack {
		_ = t.Rollback(ctx)
	}
}

type fakeTxManager struct{ store *fakeStore }

var _ repository.TxManager = fakeTxManager{}

func (m fakeTxManager) Begin(ctx context.Context) (repository.Tx, error) {
	m.store.begins++
	if m.store.beginErr != nil {
		return nil, m.store.beginErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx := &fakeTx{store: m.store, users: map[uuid.UUID]*model.User{}, events: map[uuid.UUID]*model.Event{}}
	m.store.lastTx = tx
	return tx, nil
}

type fakeUsers struct{ store *fakeStore }

var _ repository.UserRepository = fakeUsers{}

func (f fakeUsers) Create(_ context.Context, u *model.User) error {
	s := f.store
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return errs.ErrAlreadyExists
		}
	}
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s := f.store
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s := f.store
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f fakeUsers) EnableTOTP(_ context.Context, tx repository.Tx, id uuid.UUID, encSecret string) (*model.User, error) {
	t := tx.(*fakeTx)
	f.store.calls = append(f.store.calls, "enable")
	cur, ok := t.users[id]
	if !ok {
		f.store.mu.Lock()
		committed, found := f.store.users[id]
		f.store.mu.Unlock()
		if !found {
			return nil, errs.ErrDuplicateEnrollment
		}
		c := *committed
		cur = &c
	}
	if cur.TOTPEnabled {
		return nil, errs.ErrDuplicateEnrollment
	}
	next := *cur
	next.TOTPEnabled = true
	next.TOTPSecret = encSecret
	next.UpdatedAt = time.Now()
	t.users[id] = &next
	out := next
	return &out, nil
}

type fakeEvents struct{ store *fakeStore }

var _ repository.EventRepository = fakeEvents{}

func (f fakeEvents) Create(_ context.Context, tx repository.Tx, e *model.Event) error {
	t := tx.(*fakeTx)
	f.store.calls = append(f.store.calls, "event")
	if f.store.eventErr != nil {
		return f.store.eventErr
	}
	e.ID = uuid.Must(uuid.NewV7())
	e.CreatedAt = time.Now()
	c := *e
	t.events[e.ID] = &c
	return nil
}

func (f fakeEvents) UpdateMetadata(_ context.Context, tx repository.Tx, id uuid.UUID, md map[string]any) error {
	t := tx.(*fakeTx)
	f.store.calls = append(f.store.calls, "metadata")
	if f.store.metadataErr != nil {
		return f.store.metadataErr
	}
	e, ok := t.events[id]
	if !ok {
		return errs.ErrNotFound
	}
	e.Metadata = md
	return nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	subjects     []string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, subject string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.subjects = append(l.subjects, subject)
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}
