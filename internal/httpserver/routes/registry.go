package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/mw"
	"github.com/MrSnakeDoc/medic/internal/logger"
)

type Registrar func(r chi.Router, d deps.Deps)

// Scope selects which access checks wrap a route.
type Scope int

const (
	// ScopeNetwork checks the caller IP against the allowed CIDRs.
	ScopeNetwork Scope = iota
	// ScopeOperator also requires an allowed Host header.
	ScopeOperator
)

type entry struct {
	name  string
	scope Scope
	reg   Registrar
}

var registry []entry

// Register adds a route group; called from init in each route file.
func Register(name string, scope Scope, reg Registrar) {
	registry = append(registry, entry{name: name, scope: scope, reg: reg})
}

// RegisterAll mounts every registered group behind its access guard.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		access := mw.Access{CIDRs: d.AllowedCIDRS, TrustProxy: d.TrustProxy}
		if e.scope == ScopeOperator {
			access.Hosts = d.AllowedHosts
		}
		e.reg(r.With(mw.Guard(access, d.Logger)), d)
		d.Logger.Debug("route registered", logger.String("route", e.name))
	}
}
