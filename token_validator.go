package tenantauth

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// IDTokenValidator validates identity tokens issued outside this process,
// e.g. by a federated identity provider.
type IDTokenValidator interface {
	Validate(raw string) (*SessionClaims, error)
}

// IDTokenValidatorFunc adapts a function into an IDTokenValidator.
type IDTokenValidatorFunc func(raw string) (*SessionClaims, error)

// Validate satisfies the IDTokenValidator interface.
func (f IDTokenValidatorFunc) Validate(raw string) (*SessionClaims, error) {
	if f == nil {
		return nil, errors.New("no token validator configured", errors.CategoryInternal)
	}
	return f(raw)
}

// JWKSValidator validates externally issued tokens against a provider's
// JWKS endpoint, refreshing keys in the background.
type JWKSValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
	logger   Logger
}

// NewJWKSValidator fetches the JWK set from jwksURL; issuer and audience
// are enforced when non-empty.
func NewJWKSValidator(jwksURL, issuer string, audience []string, logger Logger) (*JWKSValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh error", "error", err)
		},
	})
	if err != nil {
		return nil, wrapNetwork(err, "failed to fetch JWK set")
	}

	return &JWKSValidator{
		jwks:     jwks,
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}, nil
}

// Validate satisfies the IDTokenValidator interface.
func (v *JWKSValidator) Validate(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.jwks.Keyfunc, parserOptions...)
	if err != nil {
		v.logger.Debug("identity token validation failed", "error", err)
		return nil, errors.Wrap(err, errors.CategoryAuth, "invalid identity token").
			WithCode(errors.CodeUnauthorized)
	}

	if !token.Valid {
		return nil, errors.New("invalid identity token", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return claims, nil
}

// Close stops the background key refresh.
func (v *JWKSValidator) Close() {
	v.jwks.EndBackground()
}
