package tenantauth

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeDuplicateAccount = "DUPLICATE_ACCOUNT"
	textCodeWeakCredential   = "WEAK_CREDENTIAL"
	textCodeInvalidCred      = "INVALID_CREDENTIAL"
	textCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	textCodeRateLimited      = "RATE_LIMITED"
	textCodePermissionDenied = "PERMISSION_DENIED"
	textCodeUnauthenticated  = "UNAUTHENTICATED"
	textCodeUnsupportedMode  = "UNSUPPORTED_PERSISTENCE"
	textCodeNetwork          = "NETWORK"
)

// ErrDuplicateAccount is returned on sign up when the email is taken.
var ErrDuplicateAccount = errors.New("an account already exists for that email", errors.CategoryConflict).
	WithTextCode(textCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrWeakCredential is returned on sign up when the password fails the
// minimum strength rules.
var ErrWeakCredential = errors.New("password does not meet minimum requirements", errors.CategoryValidation).
	WithTextCode(textCodeWeakCredential).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredential is returned when the email/password pair does not
// verify. We do not distinguish a bad password from a missing hash.
var ErrInvalidCredential = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCred).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when no account exists for an identifier.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(textCodeAccountNotFound)

// ErrTooManyAttempts is returned when sign in is throttled by the cooldown
// window.
var ErrTooManyAttempts = errors.New("too many failed sign in attempts", errors.CategoryOperation).
	WithTextCode(textCodeRateLimited)

// ErrPermissionDenied is returned by the document store when a collection is
// outside the configured allow list.
var ErrPermissionDenied = errors.New("permission denied", errors.CategoryAuth).
	WithTextCode(textCodePermissionDenied).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is raised locally by operations that require an active
// identity, before any collaborator is reached.
var ErrUnauthenticated = errors.New("no authenticated identity", errors.CategoryAuth).
	WithTextCode(textCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrUnsupportedPersistence is returned by ConfigurePersistence for modes
// the service does not know.
var ErrUnsupportedPersistence = errors.New("unsupported persistence mode", errors.CategoryBadInput).
	WithTextCode(textCodeUnsupportedMode).
	WithCode(errors.CodeBadRequest)

// wrapNetwork marks a collaborator failure as a transport level error.
func wrapNetwork(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryOperation, msg).
		WithTextCode(textCodeNetwork)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

// IsDuplicateAccount checks for sign up conflicts.
func IsDuplicateAccount(err error) bool { return hasTextCode(err, textCodeDuplicateAccount) }

// IsInvalidCredential checks for failed credential verification.
func IsInvalidCredential(err error) bool { return hasTextCode(err, textCodeInvalidCred) }

// IsAccountNotFound checks for missing accounts.
func IsAccountNotFound(err error) bool { return hasTextCode(err, textCodeAccountNotFound) }

// IsRateLimited checks for throttled sign in attempts.
func IsRateLimited(err error) bool { return hasTextCode(err, textCodeRateLimited) }

// IsPermissionDenied checks for document store authorization failures.
func IsPermissionDenied(err error) bool { return hasTextCode(err, textCodePermissionDenied) }

// IsUnauthenticated checks for operations attempted without an identity.
func IsUnauthenticated(err error) bool { return hasTextCode(err, textCodeUnauthenticated) }

// IsNetwork checks for transport level collaborator failures.
func IsNetwork(err error) bool { return hasTextCode(err, textCodeNetwork) }
