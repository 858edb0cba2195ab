package tenantauth

import "strings"

// Tenant is one of the two independent authentication domains. The tenants
// never share session state: a business identity does not satisfy a
// consumer gate and vice versa.
type Tenant string

const (
	TenantConsumer Tenant = "consumer"
	TenantBusiness Tenant = "business"
)

// GateReason says why a redirect was decided.
type GateReason string

const (
	// GateReasonProtected marks an authenticated-only page visited without
	// an identity.
	GateReasonProtected GateReason = "protected"
	// GateReasonAnonymousOnly marks an anonymous-only page (login, signup)
	// visited with an identity.
	GateReasonAnonymousOnly GateReason = "anonymous-only"
)

// Redirect is the decision consumed by the page router.
type Redirect struct {
	Target string
	Tenant Tenant
	Reason GateReason
}

// RouteRules is one tenant's designated page sets and redirect targets.
type RouteRules struct {
	Protected     []string
	AnonymousOnly []string
	LoginPath     string
	HomePath      string
}

// DefaultConsumerRoutes mirrors the consumer tenant's page layout.
func DefaultConsumerRoutes() RouteRules {
	return RouteRules{
		Protected:     []string{"/account"},
		AnonymousOnly: []string{"/login", "/signup", "/forgot-password"},
		LoginPath:     "/login",
		HomePath:      "/",
	}
}

// DefaultBusinessRoutes mirrors the business tenant's page layout.
func DefaultBusinessRoutes() RouteRules {
	return RouteRules{
		Protected:     []string{"/business/dashboard"},
		AnonymousOnly: []string{"/business/login", "/business/signup", "/business/forgot-password"},
		LoginPath:     "/business/login",
		HomePath:      "/business/dashboard",
	}
}

// NavigationGate decides, for a given route and both session stores,
// whether to redirect. It is a read-only consumer of the stores and is
// re-evaluated on every route or session change.
type NavigationGate struct {
	consumer      *ConsumerStore
	business      *BusinessStore
	consumerRules RouteRules
	businessRules RouteRules
	logger        Logger
}

// NewNavigationGate builds a gate over both stores with the default route
// rules.
func NewNavigationGate(consumer *ConsumerStore, business *BusinessStore) *NavigationGate {
	return &NavigationGate{
		consumer:      consumer,
		business:      business,
		consumerRules: DefaultConsumerRoutes(),
		businessRules: DefaultBusinessRoutes(),
		logger:        defLogger{},
	}
}

func (g *NavigationGate) WithLogger(logger Logger) *NavigationGate {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// WithConsumerRules overrides the consumer tenant's page sets.
func (g *NavigationGate) WithConsumerRules(rules RouteRules) *NavigationGate {
	g.consumerRules = rules
	return g
}

// WithBusinessRules overrides the business tenant's page sets.
func (g *NavigationGate) WithBusinessRules(rules RouteRules) *NavigationGate {
	g.businessRules = rules
	return g
}

// Decide evaluates path against both tenants' page sets. The business rules
// are checked first since their paths are the more specific prefix.
func (g *NavigationGate) Decide(path string) (Redirect, bool) {
	if r, ok := decideTenant(path, g.businessRules, TenantBusiness, g.business.Session().Identity != nil); ok {
		return r, true
	}

	if r, ok := decideTenant(path, g.consumerRules, TenantConsumer, g.consumer.Session().IsLoggedIn); ok {
		return r, true
	}

	return Redirect{}, false
}

func decideTenant(path string, rules RouteRules, tenant Tenant, loggedIn bool) (Redirect, bool) {
	if matchesAny(path, rules.Protected) && !loggedIn {
		return Redirect{
			Target: rules.LoginPath,
			Tenant: tenant,
			Reason: GateReasonProtected,
		}, true
	}

	if matchesAny(path, rules.AnonymousOnly) && loggedIn {
		return Redirect{
			Target: rules.HomePath,
			Tenant: tenant,
			Reason: GateReasonAnonymousOnly,
		}, true
	}

	return Redirect{}, false
}

// matchesAny treats each rule as the page itself or a parent of nested
// pages.
func matchesAny(path string, rules []string) bool {
	for _, rule := range rules {
		if path == rule || strings.HasPrefix(path, rule+"/") {
			return true
		}
	}
	return false
}
