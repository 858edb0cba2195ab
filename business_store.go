package tenantauth

import (
	"context"
	"sync"
	"time"
)

// BusinessSession is the read-only snapshot exposed to rendering logic.
// Loading covers both an in-flight profile resolution and the window before
// startup has settled, so consumers never observe a "ready but stale" state.
type BusinessSession struct {
	Identity Principal
	Profile  *BusinessProfile
	Loading  bool
}

// BusinessStore owns the business tenant's session: the authenticated
// principal, its profile document, and the two phase startup protocol.
//
// Startup runs exactly once per store: Phase A configures session
// persistence with the identity service (failure is logged and non-fatal),
// then Phase B subscribes to the session change stream. The subscription is
// never established before Phase A settles.
type BusinessStore struct {
	ids        IdentityService
	docs       DocumentStore
	collection string
	mode       PersistenceMode
	logger     Logger
	sink       ActivitySink
	now        func() time.Time

	mu          sync.RWMutex
	identity    Principal
	profile     *BusinessProfile
	initialized bool
	loading     bool
	// epoch counts identity transitions; a resolving fetch only applies its
	// result when the epoch it was issued under is still current.
	epoch uint64

	initOnce sync.Once
	sub      Subscription
	baseCtx  context.Context
}

// NewBusinessStore returns an uninitialized store. Call Init to run the
// startup protocol; until the first session change event resolves, the
// session reads as loading.
func NewBusinessStore(ids IdentityService, docs DocumentStore) *BusinessStore {
	return &BusinessStore{
		ids:        ids,
		docs:       docs,
		collection: DefaultBusinessCollection,
		mode:       PersistenceLocal,
		logger:     defLogger{},
		sink:       noopActivitySink{},
		now:        time.Now,
		// loading until startup settles, regardless of other state
		loading: true,
	}
}

func (s *BusinessStore) WithLogger(logger Logger) *BusinessStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *BusinessStore) WithActivitySink(sink ActivitySink) *BusinessStore {
	s.sink = normalizeActivitySink(sink)
	return s
}

// WithCollection overrides the document collection that holds business
// profiles.
func (s *BusinessStore) WithCollection(name string) *BusinessStore {
	if name != "" {
		s.collection = name
	}
	return s
}

// WithPersistenceMode overrides the mode requested during Phase A.
func (s *BusinessStore) WithPersistenceMode(mode PersistenceMode) *BusinessStore {
	if mode != "" {
		s.mode = mode
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *BusinessStore) WithClock(clock func() time.Time) *BusinessStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Init runs the startup protocol. It is safe to call more than once; only
// the first call has any effect. ctx is retained as the base context for
// event driven profile resolution.
func (s *BusinessStore) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		s.baseCtx = ctx

		// Phase A: persistence failure is non-fatal, the store still
		// initializes and proceeds without persistence guarantees.
		if err := s.ids.ConfigurePersistence(s.mode); err != nil {
			s.logger.Error("error setting session persistence", "error", err)
		}

		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()

		// Phase B: gated on initialized.
		s.sub = s.ids.Subscribe(s.handleSessionChange)
	})
}

// Dispose releases the session change subscription. The store remains
// readable with its last known state.
func (s *BusinessStore) Dispose() {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

// Session returns the latest known session. Never blocks.
func (s *BusinessStore) Session() BusinessSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return BusinessSession{
		Identity: s.identity,
		Profile:  s.profile.clone(),
		Loading:  s.loading || !s.initialized,
	}
}

func (s *BusinessStore) handleSessionChange(p Principal) {
	s.mu.Lock()

	if p == nil {
		s.identity = nil
		s.profile = nil
		s.loading = false
		s.epoch++
		s.mu.Unlock()
		return
	}

	s.identity = p
	s.loading = true
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	go s.resolveProfile(s.baseCtx, p, epoch)
}

// resolveProfile fetches the business document for p and applies it only if
// p is still the current identity. Superseded fetches are discarded, never
// cancelled.
func (s *BusinessStore) resolveProfile(ctx context.Context, p Principal, epoch uint64) {
	var profile *BusinessProfile

	doc, ok, err := s.docs.GetDocument(ctx, s.collection, p.ID())
	switch {
	case err != nil:
		// fail open to an empty profile, the session stays usable
		s.logger.Error("error fetching business profile", "error", err, "user", p.ID())
	case ok:
		if profile, err = profileFromDocument(doc); err != nil {
			s.logger.Error("error decoding business profile", "error", err, "user", p.ID())
			profile = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.identity == nil || s.identity.ID() != p.ID() {
		// stale: a later event superseded this fetch
		return
	}

	s.profile = profile
	s.loading = false
}

// Signup creates a business credential. When info is supplied the profile
// document is written and exposed locally right away, without waiting for
// the event stream round trip.
func (s *BusinessStore) Signup(ctx context.Context, email, password string, info *BusinessInfo) (Principal, error) {
	if info != nil {
		if err := info.Validate(); err != nil {
			return nil, err
		}
	}

	principal, err := s.ids.SignUp(ctx, email, password)
	if err != nil {
		recordActivity(ctx, s.sink, s.logger, ActivityEvent{
			EventType: ActivityEventSignupFailure,
			Tenant:    TenantBusiness,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return nil, err
	}

	var profile *BusinessProfile
	if info != nil {
		profile = info.profile(email, s.now())

		doc, err := profile.document()
		if err != nil {
			return nil, err
		}

		if err := s.docs.SetDocument(ctx, s.collection, principal.ID(), doc, false); err != nil {
			return nil, err
		}
	}

	s.applyLocal(principal, profile, profile != nil)

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventSignupSuccess,
		Actor:     actorFromPrincipal(principal),
		Tenant:    TenantBusiness,
	})

	return principal, nil
}

// Login signs in and best-effort fetches the profile document. A fetch
// failure is logged, not surfaced; login itself still succeeds.
func (s *BusinessStore) Login(ctx context.Context, email, password string) (Principal, error) {
	principal, err := s.ids.SignIn(ctx, email, password)
	if err != nil {
		recordActivity(ctx, s.sink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Tenant:    TenantBusiness,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return nil, err
	}

	var profile *BusinessProfile
	haveProfile := false

	doc, ok, err := s.docs.GetDocument(ctx, s.collection, principal.ID())
	switch {
	case err != nil:
		s.logger.Error("error fetching business profile during login", "error", err)
	case ok:
		if profile, err = profileFromDocument(doc); err != nil {
			s.logger.Error("error decoding business profile during login", "error", err)
		} else {
			haveProfile = true
		}
	}

	s.applyLocal(principal, profile, haveProfile)

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     actorFromPrincipal(principal),
		Tenant:    TenantBusiness,
	})

	return principal, nil
}

// Logout signs out and clears the local session without waiting for the
// event stream echo, to avoid a visible flash of stale state. Logging out
// while already logged out is a no-op.
func (s *BusinessStore) Logout(ctx context.Context) error {
	if err := s.ids.SignOut(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = nil
	s.profile = nil
	s.loading = false
	s.epoch++
	s.mu.Unlock()

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventLogout,
		Tenant:    TenantBusiness,
	})

	return nil
}

// ResetPassword delegates to the identity service; the result is returned
// unchanged.
func (s *BusinessStore) ResetPassword(ctx context.Context, email string) error {
	return s.ids.SendPasswordReset(ctx, email)
}

// UpdateBusinessInfo merges the populated fields of update into the profile
// document and optimistically into local state. Fails fast with an
// unauthenticated error when no identity is present.
func (s *BusinessStore) UpdateBusinessInfo(ctx context.Context, update ProfileUpdate) error {
	s.mu.RLock()
	current := s.identity
	s.mu.RUnlock()

	if current == nil {
		return ErrUnauthenticated
	}

	if err := update.Validate(); err != nil {
		return err
	}

	// An empty update would only stamp updatedAt. Skip the write.
	if update.isEmpty() {
		return nil
	}

	now := s.now()
	if err := s.docs.SetDocument(ctx, s.collection, current.ID(), update.fields(now), true); err != nil {
		return err
	}

	s.mu.Lock()
	if s.identity != nil && s.identity.ID() == current.ID() {
		if s.profile == nil {
			s.profile = &BusinessProfile{Email: current.Email(), CreatedAt: now}
		}
		update.applyTo(s.profile, now)
	}
	s.mu.Unlock()

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		Actor:     actorFromPrincipal(current),
		Tenant:    TenantBusiness,
	})

	return nil
}

// applyLocal installs the outcome of a mutating operation ahead of the
// event stream echo. Last writer wins: bumping the epoch discards any
// in-flight fetch from an earlier event.
func (s *BusinessStore) applyLocal(p Principal, profile *BusinessProfile, haveProfile bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = p
	if haveProfile {
		s.profile = profile
	}
	s.loading = false
	s.epoch++
}
