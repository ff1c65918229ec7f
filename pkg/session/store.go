// Package session owns the authenticated Identity and its Credential.
//
// A Store is built once per process and handed to everything that needs to
// know who is logged in. Init, Login, Logout and Expire are its only
// mutators; Identity and Credential are always set and cleared together.
//
//	store := session.NewStore(session.NewRemote(gw), session.NewFilePersister(path))
//	gw.UseTokenSource(store)
//	_ = store.Init(ctx)
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/auth"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/validate"
)

var (
	ErrMissingFields = errors.New("please fill in all fields")
	ErrInvalidRole   = errors.New("please select a valid role")
	ErrRoleMismatch  = errors.New("role mismatch")
	ErrExpired       = errors.New("session: stored credential has expired")
)

// RoleMismatchError is returned by Login when the backend accepted the
// credentials but the account holds a different role than requested.
type RoleMismatchError struct {
	Requested Role
	Actual    Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("You are not authorized to login as %s", e.Requested)
}

func (e *RoleMismatchError) Is(target error) bool { return target == ErrRoleMismatch }

// LoginMessage turns a Login error into the text shown on the login form.
func LoginMessage(err error) string {
	var mismatch *RoleMismatchError
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Please fill in all fields"
	case errors.Is(err, ErrInvalidRole):
		return "Please select a valid role"
	case errors.As(err, &mismatch):
		return mismatch.Error()
	default:
		return gateway.Message(err, "Login failed")
	}
}

type loginForm struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,in=user|supplier|admin"`
}

// Store holds the process-wide session.
type Store struct {
	backend Backend
	persist Persister
	now     func() time.Time
	log     *slog.Logger

	mu       sync.RWMutex
	identity *Identity
	token    string

	subMu   sync.Mutex
	subs    map[int]func(*Identity)
	nextSub int
}

// NewStore returns an anonymous store. Call Init to restore a saved session.
func NewStore(backend Backend, persist Persister) *Store {
	return &Store{
		backend: backend,
		persist: persist,
		now:     time.Now,
		log:     logger.Component("session"),
		subs:    make(map[int]func(*Identity)),
	}
}

// Token returns the current credential, or "" when anonymous. It makes the
// store a gateway.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Current returns the identity or nil; convenient for the role router.
func (s *Store) Current() *Identity {
	id, ok := s.Identity()
	if !ok {
		return nil
	}
	return &id
}

// Init restores the persisted session and revalidates it with the backend.
// Any failure leaves the store anonymous with nothing persisted. The returned
// error only explains why a stored session was dropped.
func (s *Store) Init(ctx context.Context) error {
	snap, err := s.persist.Load(ctx)
	if err != nil {
		s.log.Warn("session: load failed", "error", err)
		s.clear(ctx)
		return err
	}
	if snap == nil {
		return nil
	}

	if auth.Expired(snap.Token, s.now()) {
		s.clear(ctx)
		return ErrExpired
	}

	s.mu.Lock()
	s.token = snap.Token
	s.identity = nil
	s.mu.Unlock()

	id, err := s.backend.WhoAmI(ctx)
	if err != nil {
		s.log.Info("session: token invalid or expired, logging out", "error", err)
		s.clear(ctx)
		return fmt.Errorf("session: revalidate: %w", err)
	}

	s.set(ctx, snap.Token, id)
	return nil
}

// Login authenticates with the backend and, only when the returned identity
// holds the requested role, stores Identity and Credential together.
func (s *Store) Login(ctx context.Context, email, password, role string) (Identity, error) {
	errs := validate.Struct(loginForm{Email: email, Password: password, Role: role})
	if errs.Has("email") || errs.Has("password") {
		return Identity{}, ErrMissingFields
	}
	if errs.Has("role") {
		return Identity{}, ErrInvalidRole
	}
	requested, _ := ParseRole(role)

	token, id, err := s.backend.Login(ctx, email, password, requested)
	if err != nil {
		return Identity{}, err
	}
	if id.Role != requested {
		s.log.Warn("session: role mismatch on login", "requested", requested, "actual", id.Role)
		return Identity{}, &RoleMismatchError{Requested: requested, Actual: id.Role}
	}
	if token == "" {
		return Identity{}, errors.New("session: login response carried no token")
	}

	s.set(ctx, token, id)
	s.log.Info("session: logged in", "user_id", id.ID, "role", id.Role)
	return id, nil
}

// Logout clears Identity, Credential and the persisted copy. Safe to call
// when already anonymous.
func (s *Store) Logout(ctx context.Context) {
	s.clear(ctx)
}

// Expire is the forced logout used when the backend rejects the credential.
func (s *Store) Expire(ctx context.Context) {
	if _, ok := s.Identity(); ok {
		s.log.Warn("session: credential rejected, logging out")
	}
	s.clear(ctx)
}

// OnChange registers fn to run after every identity change (nil when
// anonymous). The returned func unsubscribes.
func (s *Store) OnChange(fn func(*Identity)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) set(ctx context.Context, token string, id Identity) {
	s.mu.Lock()
	s.token = token
	s.identity = &id
	s.mu.Unlock()

	if err := s.persist.Save(ctx, Snapshot{Token: token, Identity: &id}); err != nil {
		s.log.Warn("session: persist failed", "error", err)
	}
	s.notify(&id)
}

func (s *Store) clear(ctx context.Context) {
	s.mu.Lock()
	had := s.identity != nil || s.token != ""
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	if err := s.persist.Clear(ctx); err != nil {
		s.log.Warn("session: clear persisted copy failed", "error", err)
	}
	if had {
		s.notify(nil)
	}
}

func (s *Store) notify(id *Identity) {
	s.subMu.Lock()
	fns := make([]func(*Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		var cp *Identity
		if id != nil {
			c := *id
			cp = &c
		}
		fn(cp)
	}
}
