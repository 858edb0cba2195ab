// Package tenantauth coordinates two independent authentication tenants
// (consumer and business) against an external identity service and a
// per-tenant document store.
//
// Session stores:
//   - ConsumerStore holds the consumer identity and a derived logged-in
//     flag. It has no subscription of its own; ConsumerFlows pushes
//     transitions in after each credential operation completes.
//   - BusinessStore owns a two phase startup protocol (persistence
//     configuration, then a gated session change subscription) and the
//     identity→profile resolution pipeline, including the staleness guard
//     that keeps a late profile fetch from resurrecting a logged-out
//     identity.
//
// Routing:
//   - NavigationGate decides redirects for authenticated-only and
//     anonymous-only pages, per tenant, and adapts to an HTTP router as a
//     middleware. ChromeSelector picks the navigation chrome for a path and
//     the controls it shows.
//
// Collaborators:
//   - IdentityService and DocumentStore are the two external boundaries.
//     LocalIdentityService and BunDocumentStore are complete in-repo
//     implementations backed by bun, with bcrypt credentials, JWT session
//     snapshots, and JWKS validation for federated identity tokens.
package tenantauth
