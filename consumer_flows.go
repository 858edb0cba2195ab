package tenantauth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ConsumerFlows drives the consumer tenant's credential operations against
// the identity service and pushes the outcome into the consumer store.
// Errors from the identity service propagate unchanged; the store is left
// untouched on failure.
type ConsumerFlows struct {
	ids    IdentityService
	store  *ConsumerStore
	logger Logger
	sink   ActivitySink
}

// NewConsumerFlows wires the flows to a store and an identity service.
func NewConsumerFlows(ids IdentityService, store *ConsumerStore) *ConsumerFlows {
	return &ConsumerFlows{
		ids:    ids,
		store:  store,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (f *ConsumerFlows) WithLogger(logger Logger) *ConsumerFlows {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (f *ConsumerFlows) WithActivitySink(sink ActivitySink) *ConsumerFlows {
	f.sink = normalizeActivitySink(sink)
	return f
}

type consumerSignupPayload struct {
	Email    string
	Password string
	FullName string
}

func (p consumerSignupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(&p.FullName, validation.Length(0, 200)),
	)
}

// SignUp creates a credential, sets the display name, and logs the new
// principal into the consumer session.
func (f *ConsumerFlows) SignUp(ctx context.Context, email, password, fullName string) (Principal, error) {
	payload := consumerSignupPayload{Email: email, Password: password, FullName: fullName}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	principal, err := f.ids.SignUp(ctx, email, password)
	if err != nil {
		f.logger.Error("consumer sign up error", "error", err)
		recordActivity(ctx, f.sink, f.logger, ActivityEvent{
			EventType: ActivityEventSignupFailure,
			Tenant:    TenantConsumer,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return nil, err
	}

	if fullName != "" {
		// The credential already exists at this point, so a failed name
		// write must not leave the new account outside the session.
		if err := f.ids.UpdateDisplayName(ctx, principal, fullName); err != nil {
			f.logger.Error("error setting display name after signup", "error", err)
		} else {
			principal = NewPrincipal(principal.ID(), principal.Email(), fullName, principal.PhotoURL())
		}
	}

	f.store.SetIdentity(principal)
	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventSignupSuccess,
		Actor:     actorFromPrincipal(principal),
		Tenant:    TenantConsumer,
	})

	return principal, nil
}

// SignIn verifies the credential and logs the principal into the consumer
// session.
func (f *ConsumerFlows) SignIn(ctx context.Context, email, password string) (Principal, error) {
	principal, err := f.ids.SignIn(ctx, email, password)
	if err != nil {
		f.logger.Error("consumer sign in error", "error", err)
		recordActivity(ctx, f.sink, f.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Tenant:    TenantConsumer,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return nil, err
	}

	f.store.SetIdentity(principal)
	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     actorFromPrincipal(principal),
		Tenant:    TenantConsumer,
	})

	return principal, nil
}

// SignInWithIDToken accepts an externally issued identity token (federated
// sign in) and logs the resulting principal into the consumer session.
func (f *ConsumerFlows) SignInWithIDToken(ctx context.Context, rawToken string) (Principal, error) {
	principal, err := f.ids.SignInWithIDToken(ctx, rawToken)
	if err != nil {
		f.logger.Error("federated sign in error", "error", err)
		return nil, err
	}

	f.store.SetIdentity(principal)
	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventFederatedLogin,
		Actor:     actorFromPrincipal(principal),
		Tenant:    TenantConsumer,
	})

	return principal, nil
}

// SignOut ends the session with the identity service, then clears the local
// session so the UI never shows stale state.
func (f *ConsumerFlows) SignOut(ctx context.Context) error {
	if err := f.ids.SignOut(ctx); err != nil {
		return err
	}

	f.store.Clear()
	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventLogout,
		Tenant:    TenantConsumer,
	})

	return nil
}

// SendPasswordReset delegates to the identity service; the result is
// returned unchanged.
func (f *ConsumerFlows) SendPasswordReset(ctx context.Context, email string) error {
	return f.ids.SendPasswordReset(ctx, email)
}

// SendEmailVerification requests a verification message for the current
// identity.
func (f *ConsumerFlows) SendEmailVerification(ctx context.Context) error {
	session := f.store.Session()
	if !session.IsLoggedIn {
		return ErrUnauthenticated
	}
	return f.ids.SendEmailVerification(ctx, session.Identity)
}

// UpdatePassword changes the current identity's password.
func (f *ConsumerFlows) UpdatePassword(ctx context.Context, newPassword string) error {
	session := f.store.Session()
	if !session.IsLoggedIn {
		return ErrUnauthenticated
	}
	return f.ids.UpdatePassword(ctx, session.Identity, newPassword)
}
