package tenantauth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// DefaultRejectedRouteKey is the cookie that remembers the page a visitor
// was bounced from, so the post-login flow can send them back.
const DefaultRejectedRouteKey = "rejected_route"

// Middleware adapts the gate to an HTTP router: requests to gated pages are
// redirected server side, everything else passes through.
func (g *NavigationGate) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			redirect, ok := g.Decide(c.Path())
			if !ok {
				return next(c)
			}

			g.logger.Info(
				"navigation gate redirect",
				"decision", print.MaybePrettyJSON(map[string]any{
					"from":   c.Path(),
					"to":     redirect.Target,
					"tenant": redirect.Tenant,
					"reason": redirect.Reason,
				}),
			)

			if redirect.Reason == GateReasonProtected {
				g.setRejectedRoute(c)
			}

			statusCode := http.StatusSeeOther
			if c.Method() == string(router.GET) {
				statusCode = http.StatusFound
			}
			return c.Redirect(redirect.Target, statusCode)
		}
	}
}

func (g *NavigationGate) setRejectedRoute(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     DefaultRejectedRouteKey,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ConsumeRedirect returns the remembered rejected route, or def when none
// was set, clearing the cookie either way.
func ConsumeRedirect(c router.Context, def string) string {
	r := c.Cookies(DefaultRejectedRouteKey)
	if r == "" {
		r = def
	}

	c.Cookie(&router.Cookie{
		Name:     DefaultRejectedRouteKey,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	return r
}
