package tenantauth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal holds the attributes of an authenticated identity as reported
// by the identity service.
type Principal interface {
	ID() string
	Email() string
	DisplayName() string
	PhotoURL() string
}

// PersistenceMode controls how the identity service persists the current
// session across restarts.
type PersistenceMode string

const (
	// PersistenceNone keeps no session state between restarts.
	PersistenceNone PersistenceMode = "none"
	// PersistenceMemory keeps the session for the lifetime of the process.
	PersistenceMemory PersistenceMode = "memory"
	// PersistenceLocal snapshots the session to durable storage and restores
	// it on the next start.
	PersistenceLocal PersistenceMode = "local"
)

// Subscription is a cancellable handle for a session change subscription.
type Subscription interface {
	Unsubscribe()
}

// IdentityService is the credential and session authority the stores
// coordinate with. Subscribe delivers the current principal immediately and
// then once per session change; a nil principal means "no session".
type IdentityService interface {
	SignUp(ctx context.Context, email, password string) (Principal, error)
	SignIn(ctx context.Context, email, password string) (Principal, error)
	SignInWithIDToken(ctx context.Context, rawToken string) (Principal, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context, principal Principal) error
	UpdateDisplayName(ctx context.Context, principal Principal, name string) error
	UpdatePassword(ctx context.Context, principal Principal, newPassword string) error
	ConfigurePersistence(mode PersistenceMode) error
	Subscribe(onChange func(Principal)) Subscription
}

// Document is the schemaless payload shape exchanged with the document store.
type Document = map[string]any

// DocumentStore is a per-tenant document store keyed by collection and
// record key. SetDocument with merge performs a partial update, otherwise a
// full overwrite.
type DocumentStore interface {
	GetDocument(ctx context.Context, collection, key string) (Document, bool, error)
	SetDocument(ctx context.Context, collection, key string, data Document, merge bool) error
}

type principalRecord struct {
	id          string
	email       string
	displayName string
	photoURL    string
}

// NewPrincipal builds a Principal value from its attributes. Useful for
// identity service implementations and tests.
func NewPrincipal(id, email, displayName, photoURL string) Principal {
	return principalRecord{
		id:          id,
		email:       email,
		displayName: displayName,
		photoURL:    photoURL,
	}
}

func (p principalRecord) ID() string          { return p.id }
func (p principalRecord) Email() string       { return p.email }
func (p principalRecord) DisplayName() string { return p.displayName }
func (p principalRecord) PhotoURL() string    { return p.photoURL }

var _ Principal = principalRecord{}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
