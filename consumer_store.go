package tenantauth

import "sync"

// ConsumerSession is the read-only snapshot exposed to rendering logic.
// IsLoggedIn is strictly derived from Identity and never set independently.
type ConsumerSession struct {
	Identity   Principal
	IsLoggedIn bool
}

// ConsumerStore holds the current consumer identity. Unlike the business
// store it does not subscribe to the identity change stream; transitions are
// pushed in by the flows that perform them.
type ConsumerStore struct {
	mu       sync.RWMutex
	identity Principal
}

// NewConsumerStore returns an empty store; the session resolves to
// "not logged in" until a flow pushes an identity.
func NewConsumerStore() *ConsumerStore {
	return &ConsumerStore{}
}

// Session returns the latest known session. Never blocks.
func (s *ConsumerStore) Session() ConsumerSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ConsumerSession{
		Identity:   s.identity,
		IsLoggedIn: s.identity != nil,
	}
}

// SetIdentity replaces the identity wholesale. A nil principal clears the
// session.
func (s *ConsumerStore) SetIdentity(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = p
}

// Clear drops the current identity.
func (s *ConsumerStore) Clear() {
	s.SetIdentity(nil)
}
