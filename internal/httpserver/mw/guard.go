package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/utils"
)

// Access lists who may reach a route. Empty lists do not filter.
type Access struct {
	CIDRs      []string
	Hosts      []string // exact or "*.example.com"
	TrustProxy bool
}

// Guard rejects callers outside Access.CIDRs and requests whose Host is not
// in Access.Hosts with 403.
func Guard(a Access, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(a.CIDRs)
	if m.IsEmpty() && len(a.Hosts) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, a.TrustProxy)

			reason := ""
			switch {
			case !m.IsEmpty() && !m.Allow(ip):
				reason = "ip"
			case len(a.Hosts) > 0 && !hostAllowed(r.Host, a.Hosts):
				reason = "host"
			}
			if reason != "" {
				log.Warn("request rejected",
					logger.String("reason", reason),
					logger.String("ip", ip),
					logger.String("host", r.Host),
					logger.String("path", r.URL.Path))
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hostAllowed(host string, patterns []string) bool {
	for _, p := range patterns {
		if matchHost(host, p) {
			return true
		}
	}
	return false
}

// matchHost compares host without port; "*.example.com" matches any subdomain.
func matchHost(host, pattern string) bool {
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	if host == pattern {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return false
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}` + "\n"))
}
