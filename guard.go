package portal

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Decision is the outcome of a guard check at the moment of navigation.
// Decisions are never cached: every navigation re-reads the session.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Guard gates navigations against the current session state. Authentication
// is always evaluated before roles.
type Guard struct {
	store *Store

	// LoginPath is where unauthenticated navigations are sent.
	LoginPath string
	// LandingPath is where authenticated but under-privileged navigations
	// are sent.
	LandingPath string
	// ReturnToCookie records the originally requested destination so it can
	// be restored after login.
	ReturnToCookie string

	Logger Logger
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithGuardLogger overrides the default logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.Logger = logger
		}
	}
}

// WithGuardPaths overrides the login and landing destinations.
func WithGuardPaths(login, landing string) GuardOption {
	return func(g *Guard) {
		if login != "" {
			g.LoginPath = login
		}
		if landing != "" {
			g.LandingPath = landing
		}
	}
}

func NewGuard(store *Store, opts ...GuardOption) *Guard {
	g := &Guard{
		store:          store,
		LoginPath:      "/login",
		LandingPath:    "/",
		ReturnToCookie: "portal_return_to",
		Logger:         defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// CheckAuthenticated decides an authentication-gated navigation from a
// session snapshot.
func (g *Guard) CheckAuthenticated(sess Session) Decision {
	if !sess.Authenticated() {
		return Decision{RedirectTo: g.LoginPath}
	}
	return Decision{Allowed: true}
}

// CheckRole decides a role-gated navigation. It only means something once
// authentication passed, so that check runs first.
func (g *Guard) CheckRole(sess Session, allowed ...Role) Decision {
	if d := g.CheckAuthenticated(sess); !d.Allowed {
		return d
	}

	if sess.User != nil && sess.User.Role.In(allowed...) {
		return Decision{Allowed: true}
	}

	return Decision{RedirectTo: g.LandingPath}
}

// RequireAuthenticated redirects unauthenticated navigations to the login
// entry point, remembering the requested destination.
func (g *Guard) RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := g.store.Snapshot()
		if d := g.CheckAuthenticated(sess); !d.Allowed {
			g.setReturnTo(c)
			return c.Redirect(d.RedirectTo, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// RequireRole redirects navigations whose session role is not in the
// allow-list to the default landing page. Unauthenticated sessions go to
// login instead.
func (g *Guard) RequireRole(allowed ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := g.store.Snapshot()

		d := g.CheckRole(sess, allowed...)
		if d.Allowed {
			return c.Next()
		}

		if !sess.Authenticated() {
			g.setReturnTo(c)
		} else {
			role := Role("")
			if sess.User != nil {
				role = sess.User.Role
			}
			g.Logger.Info("role %q not allowed for %s", role, c.OriginalURL())
		}

		return c.Redirect(d.RedirectTo, fiber.StatusSeeOther)
	}
}

// ReturnTo pops the recorded destination, falling back to def.
func (g *Guard) ReturnTo(c *fiber.Ctx, def string) string {
	r := c.Cookies(g.ReturnToCookie)
	if r == "" {
		return def
	}
	g.clearReturnTo(c)
	return r
}

func (g *Guard) setReturnTo(c *fiber.Ctx) {
	g.Logger.Debug("recording rejected route %s", c.OriginalURL())

	c.Cookie(&fiber.Cookie{
		Name:     g.ReturnToCookie,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func (g *Guard) clearReturnTo(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     g.ReturnToCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
