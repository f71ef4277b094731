package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// QueueCheck names the readiness check for the job queue.
const QueueCheck = "queue"

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every registered check. The queue is reported but does not fail
// readiness, since jobs fall back to in-process execution without it.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(a.Checks))
	for name := range a.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := a.Checks[name](ctx); err != nil {
			results[name] = err.Error()
			if name != QueueCheck {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		results[name] = "ok"
	}
	a.json(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
}
