package routes

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/mw"
)

// Registrar mounts the routes of one group.
type Registrar func(r chi.Router, d deps.Deps)

// Access is the network restriction shared by every route of a group.
type Access int

const (
	// Public routes are reachable by anyone (partners submit here).
	Public Access = iota
	// Internal routes require a client ip inside DOCKMETRICS_ALLOWED_CIDRS.
	Internal
	// Admin routes also require an allowed Host header.
	Admin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// Group is one named set of routes.
type Group struct {
	Name   string
	Access Access
	reg    Registrar
}

var registry = map[string]Group{}

// Register adds a named group. Registering a name twice panics at init.
func Register(name string, access Access, reg Registrar) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("routes: group %q registered twice", name))
	}
	registry[name] = Group{Name: name, Access: access, reg: reg}
}

// Groups lists the registered groups, public first, then by name.
func Groups() []Group {
	groups := make([]Group, 0, len(registry))
	for _, g := range registry {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Access != groups[j].Access {
			return groups[i].Access < groups[j].Access
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}

func accessMiddlewares(a Access, d deps.Deps) []func(http.Handler) http.Handler {
	switch a {
	case Internal:
		return []func(http.Handler) http.Handler{mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)}
	case Admin:
		return []func(http.Handler) http.Handler{
			mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.EnforceHost(d.AllowedHosts, d.Logger),
		}
	default:
		return nil
	}
}

// RegisterAll mounts every group in Groups order. Called once from NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range Groups() {
		if mws := accessMiddlewares(g.Access, d); len(mws) > 0 {
			g.reg(r.With(mws...), d)
			continue
		}
		g.reg(r, d)
	}
}
