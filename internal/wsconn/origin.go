package wsconn

import (
	"net/http"
	"strings"
)

// OriginChecker builds an Upgrader CheckOrigin func from a configured origin
// allowlist. An empty list accepts every origin; requests without an Origin
// header (non-browser clients, tests) are always accepted.
func OriginChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[normalizeOrigin(origin)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[normalizeOrigin(origin)]
		return ok
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(origin), "/"))
}
