package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"
)

// RememberedSessionKey is the preference holding the signed-in email.
const RememberedSessionKey = "session.email"

const minPasswordLength = 6

type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// SignUpInput is what the sign-up form submits.
type SignUpInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	Currency string `json:"preferred_currency" validate:"omitempty,len=3,alpha"`
}

// SessionManager holds the signed-in user for this process. Passwords are
// only length-checked; no credential is stored.
type SessionManager struct {
	writer *Writer
	prefs  ports.PreferenceStore
	events ports.EventSink
	logger *applog.Logger
	diag   *applog.StructuredLogger
	now    func() time.Time

	mu      sync.Mutex
	current *core.User
}

func NewSessionManager(writer *Writer, prefs ports.PreferenceStore, events ports.EventSink, logger *applog.Logger) *SessionManager {
	if events == nil {
		events = ports.NopSink{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSession)
	return &SessionManager{
		writer: writer,
		prefs:  prefs,
		events: events,
		logger: logger,
		diag:   applog.NewStructuredLogger(logger),
		now:    time.Now,
	}
}

// State reports whether a user is signed in.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Unauthenticated
	}
	return Authenticated
}

// Current returns a copy of the signed-in user.
func (m *SessionManager) Current() (*core.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	return m.current.Clone().(*core.User), true
}

// SignIn authenticates by exact email. It sets the session, remembers the
// email and emits events.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events.Emit(ctx, core.NewEvent(core.EventSignInAttempt, "", nil))

	if len(password) < minPasswordLength {
		return nil, m.fail(ctx, applog.OpSignIn, core.EventSignInFailure, core.ErrInvalidCredentials)
	}

	user, err := ports.FetchOne[*core.User](ctx, m.writer.Store(), core.Where("email", core.OpEq, email))
	if errors.Is(err, core.ErrNotFound) {
		return nil, m.fail(ctx, applog.OpSignIn, core.EventSignInFailure, core.ErrUserNotFound)
	}
	if err != nil {
		return nil, m.fail(ctx, applog.OpSignIn, core.EventSignInFailure, err)
	}

	m.authenticate(ctx, user)
	m.events.Emit(ctx, core.NewEvent(core.EventSignInSuccess, user.ID, nil))
	return user.Clone().(*core.User), nil
}

// SignUp creates a user, signs them in and remembers the email.
func (m *SessionManager) SignUp(ctx context.Context, in SignUpInput) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput("sign up", in); err != nil {
		if len(in.Password) < minPasswordLength {
			err = core.ErrInvalidCredentials
		}
		return nil, m.fail(ctx, applog.OpSignUp, core.EventSignUpFailure, err)
	}

	user := core.NewUser(in.Name, in.Email, in.Currency, m.now())
	if err := user.Validate(); err != nil {
		return nil, m.fail(ctx, applog.OpSignUp, core.EventSignUpFailure, err)
	}

	err := m.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		_, err := ports.FetchOne[*core.User](ctx, store, core.Where("email", core.OpEq, user.Email))
		switch {
		case err == nil:
			return core.ErrEmailAlreadyExists
		case !errors.Is(err, core.ErrNotFound):
			return err
		}
		store.Insert(user)
		return nil
	})
	if err != nil {
		return nil, m.fail(ctx, applog.OpSignUp, core.EventSignUpFailure, err)
	}

	m.authenticate(ctx, user)
	m.events.Emit(ctx, core.NewEvent(core.EventSignUp, user.ID, map[string]string{
		"preferred_currency": user.PreferredCurrency,
	}))
	return user.Clone().(*core.User), nil
}

// SignOut clears the session and the remembered email. Signing out twice
// is harmless.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID := ""
	if m.current != nil {
		userID = m.current.ID
	}
	m.current = nil

	if m.prefs != nil {
		if err := m.prefs.Delete(ctx, RememberedSessionKey); err != nil {
			m.diag.LogError(ctx, "Failed to forget session", err, applog.ComponentSession, applog.OpSignOut, nil)
		}
	}
	m.events.Emit(ctx, core.NewEvent(core.EventSignOut, userID, nil))
}

// UpdateProfile renames the signed-in user and, when image is non-nil,
// replaces the profile image.
func (m *SessionManager) UpdateProfile(ctx context.Context, name string, image []byte) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, m.fail(ctx, applog.OpUpdate, "", core.ErrUserNotFound)
	}
	id := m.current.ID

	var updated *core.User
	err := m.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		user, err := ports.ByID[*core.User](ctx, store, id)
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		user.Name = strings.TrimSpace(name)
		if image != nil {
			user.ProfileImage = append([]byte(nil), image...)
		}
		if err := user.Validate(); err != nil {
			return err
		}
		store.Update(user)
		updated = user
		return nil
	})
	if err != nil {
		return nil, m.fail(ctx, applog.OpUpdate, "", err)
	}

	m.current = updated
	m.events.Emit(ctx, core.NewEvent(core.EventProfileUpdated, id, map[string]string{
		"image_changed": strconv.FormatBool(image != nil),
	}))
	return updated.Clone().(*core.User), nil
}

// Restore signs the remembered user back in at startup. A missing or stale
// remembered email leaves the session unauthenticated without error.
func (m *SessionManager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.prefs == nil {
		return nil
	}
	email, ok, err := m.prefs.Get(ctx, RememberedSessionKey)
	if err != nil {
		return m.fail(ctx, applog.OpRestore, "", err)
	}
	if !ok || email == "" {
		return nil
	}

	user, err := ports.FetchOne[*core.User](ctx, m.writer.Store(), core.Where("email", core.OpEq, email))
	if errors.Is(err, core.ErrNotFound) {
		m.logger.InfoContext(ctx, "Remembered user no longer exists, forgetting session")
		if err := m.prefs.Delete(ctx, RememberedSessionKey); err != nil {
			m.diag.LogError(ctx, "Failed to forget session", err, applog.ComponentSession, applog.OpRestore, nil)
		}
		return nil
	}
	if err != nil {
		return m.fail(ctx, applog.OpRestore, "", err)
	}

	m.current = user
	m.events.Emit(ctx, core.NewEvent(core.EventSessionRestored, user.ID, nil))
	return nil
}

// authenticate must be called with m.mu held.
func (m *SessionManager) authenticate(ctx context.Context, user *core.User) {
	m.current = user.Clone().(*core.User)
	if m.prefs == nil {
		return
	}
	if err := m.prefs.Set(ctx, RememberedSessionKey, user.Email); err != nil {
		m.logger.WarnContext(ctx, "Failed to remember session", applog.FieldUserID, user.ID, applog.FieldError, err.Error())
	}
}

// fail logs err, emits the failure event when one is given, and returns err.
func (m *SessionManager) fail(ctx context.Context, op, event string, err error) error {
	switch core.KindOf(err) {
	case core.Persistence, "":
		m.diag.LogError(ctx, "Session operation failed", err, applog.ComponentSession, op, nil)
	default:
		m.logger.Fields(ctx, slog.LevelWarn, "Session operation rejected", applog.NewFields().WithOperation(op).WithError(err))
	}
	if event != "" {
		m.events.Emit(ctx, core.NewEvent(event, "", map[string]string{"reason": string(core.KindOf(err))}))
	}
	return err
}
