package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/net/websocket"

	"github.com/johnqh/di-web/internal/platform/backoff"
)

// pushFeed subscribes to a push relay over a websocket and forwards each
// JSON frame to the worker as a push event. The subscription reconnects
// with the shared backoff schedule; a healthy connection resets it.
type pushFeed struct {
	feedURL  string
	origin   string
	deliver  func(ctx context.Context, payload []byte) error
	dial     func(ctx context.Context) (io.ReadCloser, error)
	schedule backoff.Schedule
}

func newPushFeed(feedURL, origin string, deliver func(ctx context.Context, payload []byte) error) *pushFeed {
	f := &pushFeed{
		feedURL:  feedURL,
		origin:   origin,
		deliver:  deliver,
		schedule: backoff.Schedule{Base: time.Second, Max: time.Minute},
	}
	f.dial = f.dialWebsocket
	return f
}

func (f *pushFeed) dialWebsocket(ctx context.Context) (io.ReadCloser, error) {
	conn, err := websocket.Dial(f.feedURL, "", f.origin)
	if err != nil {
		return nil, fmt.Errorf("dial push feed %s: %w", f.feedURL, err)
	}
	return conn, nil
}

// run consumes the feed until ctx ends.
func (f *pushFeed) run(ctx context.Context) {
	attempt := 0
	for ctx.Err() == nil {
		conn, err := f.dial(ctx)
		if err != nil {
			attempt++
			log.Printf("push feed connect: %v", err)
			if !backoff.Wait(ctx, f.schedule.Delay(attempt)) {
				return
			}
			continue
		}
		attempt = 0
		log.Printf("push feed connected to %s", f.feedURL)
		f.consume(ctx, conn)
		if !backoff.Wait(ctx, f.schedule.Delay(1)) {
			return
		}
	}
}

// consume reads frames until the connection ends. The connection is closed
// when ctx ends so the blocked read unwinds.
func (f *pushFeed) consume(ctx context.Context, conn io.ReadCloser) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	decoder := json.NewDecoder(conn)
	for {
		var payload json.RawMessage
		if err := decoder.Decode(&payload); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Printf("push feed read: %v", err)
			}
			return
		}
		if err := f.deliver(ctx, []byte(payload)); err != nil {
			log.Printf("push feed deliver: %v", err)
		}
	}
}
