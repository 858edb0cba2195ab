package tenantauth

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// MaxLoginAttempts is the maximun number of attempts an account gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// Sender delivers password reset and email verification messages. The
// default implementation logs and drops them.
type Sender interface {
	SendPasswordReset(ctx context.Context, email, token string) error
	SendEmailVerification(ctx context.Context, email, token string) error
}

type noopSender struct {
	logger Logger
}

func (s noopSender) SendPasswordReset(_ context.Context, email, _ string) error {
	s.logger.Info("password reset requested", "email", email)
	return nil
}

func (s noopSender) SendEmailVerification(_ context.Context, email, _ string) error {
	s.logger.Info("email verification requested", "email", email)
	return nil
}

// LocalIdentityService is an IdentityService backed by the accounts
// repository. It owns the process's notion of "the current session" and
// fans session changes out to subscribers; a nil principal means no
// session.
type LocalIdentityService struct {
	store      AccountStore
	tokens     TokenService
	tokenStore TokenStore
	validator  IDTokenValidator
	sender     Sender
	logger     Logger
	now        func() time.Time

	mu          sync.Mutex
	mode        PersistenceMode
	current     Principal
	subscribers map[int]func(Principal)
	nextSubID   int
}

var _ IdentityService = (*LocalIdentityService)(nil)

// NewLocalIdentityService wires the service to its account store and the
// token service used for session snapshots.
func NewLocalIdentityService(store AccountStore, tokens TokenService) *LocalIdentityService {
	logger := defLogger{}
	return &LocalIdentityService{
		store:       store,
		tokens:      tokens,
		sender:      noopSender{logger: logger},
		logger:      logger,
		now:         time.Now,
		mode:        PersistenceNone,
		subscribers: map[int]func(Principal){},
	}
}

func (s *LocalIdentityService) WithLogger(logger Logger) *LocalIdentityService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenStore enables the local persistence mode.
func (s *LocalIdentityService) WithTokenStore(store TokenStore) *LocalIdentityService {
	s.tokenStore = store
	return s
}

// WithIDTokenValidator enables federated sign in.
func (s *LocalIdentityService) WithIDTokenValidator(validator IDTokenValidator) *LocalIdentityService {
	s.validator = validator
	return s
}

// WithSender overrides the message delivery used for password resets and
// email verification.
func (s *LocalIdentityService) WithSender(sender Sender) *LocalIdentityService {
	if sender != nil {
		s.sender = sender
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *LocalIdentityService) WithClock(clock func() time.Time) *LocalIdentityService {
	if clock != nil {
		s.now = clock
	}
	return s
}

func (s *LocalIdentityService) SignUp(ctx context.Context, email, password string) (Principal, error) {
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateAccount.WithMetadata(map[string]any{
			"email": email,
		})
	} else if !IsAccountNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check for existing account")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        email,
		PasswordHash: hash,
	}
	if id, err := hashid.NewUUID(email); err == nil {
		account.ID = id
	} else {
		account.ID = uuid.New()
	}

	created, err := s.store.Create(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create account")
	}

	principal := created.principal()
	s.setCurrent(principal)

	return principal, nil
}

func (s *LocalIdentityService) SignIn(ctx context.Context, email, password string) (Principal, error) {
	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if IsAccountNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during sign in")
	}

	if account.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if account.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyAttempts
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if err2 := s.store.TrackAttemptedLogin(ctx, account); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrInvalidCredential
	}

	if err := s.store.TrackSuccessfulLogin(ctx, account); err != nil {
		s.logger.Error("failed to track successful login", "error", err)
	}

	principal := account.principal()
	s.setCurrent(principal)

	return principal, nil
}

func (s *LocalIdentityService) SignInWithIDToken(ctx context.Context, rawToken string) (Principal, error) {
	if s.validator == nil {
		return nil, errors.New("federated sign in is not configured", errors.CategoryBadInput)
	}

	claims, err := s.validator.Validate(rawToken)
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetByEmail(ctx, claims.Email)
	if err != nil {
		if !IsAccountNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during federated sign in")
		}

		account = &Account{
			Email:        claims.Email,
			DisplayName:  claims.Name,
			PhotoURL:     claims.Picture,
			PasswordHash: RandomPasswordHash(),
		}
		if id, err := hashid.NewUUID(claims.Email); err == nil {
			account.ID = id
		} else {
			account.ID = uuid.New()
		}

		if account, err = s.store.Create(ctx, account); err != nil {
			return nil, errors.Wrap(err, errors.CategoryConflict, "could not create federated account")
		}
	}

	principal := account.principal()
	s.setCurrent(principal)

	return principal, nil
}

// SignOut clears the current session. Signing out with no session is a
// no-op.
func (s *LocalIdentityService) SignOut(context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.setCurrent(nil)
	return nil
}

func (s *LocalIdentityService) SendPasswordReset(ctx context.Context, email string) error {
	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.sender.SendPasswordReset(ctx, account.Email, uuid.NewString())
}

func (s *LocalIdentityService) SendEmailVerification(ctx context.Context, principal Principal) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	account, err := s.store.GetByID(ctx, principal.ID())
	if err != nil {
		return err
	}

	return s.sender.SendEmailVerification(ctx, account.Email, uuid.NewString())
}

func (s *LocalIdentityService) UpdateDisplayName(ctx context.Context, principal Principal, name string) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	account, err := s.store.GetByID(ctx, principal.ID())
	if err != nil {
		return err
	}

	account.DisplayName = name
	updated, err := s.store.Update(ctx, account)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update display name")
	}

	// keep the session attributes in step without emitting a change event,
	// the identity itself did not change
	s.mu.Lock()
	if s.current != nil && s.current.ID() == principal.ID() {
		s.current = updated.principal()
	}
	s.mu.Unlock()

	return nil
}

func (s *LocalIdentityService) UpdatePassword(ctx context.Context, principal Principal, newPassword string) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	account, err := s.store.GetByID(ctx, principal.ID())
	if err != nil {
		return err
	}

	account.PasswordHash = hash
	if _, err := s.store.Update(ctx, account); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update password")
	}

	return nil
}

// ConfigurePersistence selects the session persistence mode. The local mode
// restores any previously persisted session snapshot; a restored session is
// delivered through Subscribe, not announced here.
func (s *LocalIdentityService) ConfigurePersistence(mode PersistenceMode) error {
	switch mode {
	case PersistenceNone, PersistenceMemory:
		s.mu.Lock()
		s.mode = mode
		s.mu.Unlock()
		return nil
	case PersistenceLocal:
		if s.tokenStore == nil {
			return ErrUnsupportedPersistence.WithMetadata(map[string]any{
				"mode":   mode,
				"reason": "no token store configured",
			})
		}

		s.mu.Lock()
		s.mode = mode
		s.mu.Unlock()

		s.restoreSession()
		return nil
	default:
		return ErrUnsupportedPersistence.WithMetadata(map[string]any{
			"mode": mode,
		})
	}
}

func (s *LocalIdentityService) restoreSession() {
	raw, ok, err := s.tokenStore.Load()
	if err != nil {
		s.logger.Error("failed to load persisted session", "error", err)
		return
	}
	if !ok {
		return
	}

	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Warn("discarding invalid persisted session", "error", err)
		if err := s.tokenStore.Clear(); err != nil {
			s.logger.Error("failed to clear persisted session", "error", err)
		}
		return
	}

	account, err := s.store.GetByID(context.Background(), claims.RegisteredClaims.Subject)
	if err != nil {
		s.logger.Warn("persisted session references unknown account", "error", err)
		return
	}

	s.mu.Lock()
	s.current = account.principal()
	s.mu.Unlock()
}

// Subscribe registers onChange and immediately delivers the current session
// state, which may be "no session".
func (s *LocalIdentityService) Subscribe(onChange func(Principal)) Subscription {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = onChange
	current := s.current
	s.mu.Unlock()

	onChange(current)

	return &localSubscription{svc: s, id: id}
}

type localSubscription struct {
	svc  *LocalIdentityService
	id   int
	once sync.Once
}

func (l *localSubscription) Unsubscribe() {
	l.once.Do(func() {
		l.svc.mu.Lock()
		delete(l.svc.subscribers, l.id)
		l.svc.mu.Unlock()
	})
}

func (s *LocalIdentityService) setCurrent(p Principal) {
	s.mu.Lock()
	s.current = p
	handlers := make([]func(Principal), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		handlers = append(handlers, fn)
	}
	mode := s.mode
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(p)
	}

	if mode != PersistenceLocal || s.tokenStore == nil {
		return
	}

	if p == nil {
		if err := s.tokenStore.Clear(); err != nil {
			s.logger.Error("failed to clear persisted session", "error", err)
		}
		return
	}

	token, err := s.tokens.Mint(p)
	if err != nil {
		s.logger.Error("failed to mint session snapshot", "error", err)
		return
	}
	if err := s.tokenStore.Save(token); err != nil {
		s.logger.Error("failed to persist session snapshot", "error", err)
	}
}
