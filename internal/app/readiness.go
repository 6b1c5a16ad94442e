package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is the minimal surface a dependency needs for a readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// PingCheck wraps any Pinger as a named check.
func PingCheck(name string, p Pinger) Check {
	return Check{Name: name, Fn: func(ctx context.Context) error { return p.Ping(ctx) }}
}

// ReadyHandler runs every check with a short deadline and reports 503 with the
// failing names when any of them errors.
func ReadyHandler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failures := map[string]string{}
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				failures[c.Name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unavailable", "failures": failures})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
