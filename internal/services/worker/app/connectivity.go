package app

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/johnqh/di-web/internal/platform/timeouts"
)

// connectivityWatcher probes the upstream on an interval and fires the
// resync callback on each offline-to-online transition. Any upstream
// response counts as reachable; only transport failures count as offline.
type connectivityWatcher struct {
	probe    func(ctx context.Context) bool
	interval time.Duration
	onOnline func(ctx context.Context)

	online bool
}

func newConnectivityWatcher(base *url.URL, interval time.Duration, onOnline func(ctx context.Context)) *connectivityWatcher {
	client := &http.Client{Timeout: timeouts.ConnectivityProbe}
	probeURL := base.String()
	return &connectivityWatcher{
		probe: func(ctx context.Context) bool {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
			if err != nil {
				return false
			}
			res, err := client.Do(req)
			if err != nil {
				return false
			}
			res.Body.Close()
			return true
		},
		interval: interval,
		onOnline: onOnline,
		// Starting online means the first observation can only report a
		// loss, never a spurious restore.
		online: true,
	}
}

func (w *connectivityWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.observe(ctx)
		}
	}
}

func (w *connectivityWatcher) observe(ctx context.Context) {
	online := w.probe(ctx)
	if online && !w.online {
		log.Printf("connectivity restored, requesting resync")
		w.onOnline(ctx)
	}
	w.online = online
}
