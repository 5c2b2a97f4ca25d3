package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/johnqh/di-web/internal/platform/id"
	"github.com/johnqh/di-web/internal/services/worker/domain"
)

// Page is one open application page known to the host.
type Page struct {
	id    string
	url   string
	clock func() time.Time

	mu        sync.Mutex
	focusedAt time.Time
}

// ID returns the page identifier.
func (p *Page) ID() string { return p.id }

// URL returns the page location.
func (p *Page) URL() string { return p.url }

// Focus brings the page to the foreground.
func (p *Page) Focus(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusedAt = p.clock().UTC()
	return nil
}

// FocusedAt returns when the page was last focused, zero if never.
func (p *Page) FocusedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focusedAt
}

// Clients tracks the open application pages a worker may list, claim,
// focus, and open.
type Clients struct {
	clock func() time.Time
	newID func() (string, error)

	mu     sync.Mutex
	order  []string
	pages  map[string]*Page
	claims int
}

// NewClients builds an empty page registry.
func NewClients(clock func() time.Time, newID func() (string, error)) *Clients {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Clients{
		clock: clock,
		newID: newID,
		pages: make(map[string]*Page),
	}
}

// Connect registers an open page at url and returns its record.
func (c *Clients) Connect(url string) (*Page, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("page url is required")
	}
	pageID, err := c.newID()
	if err != nil {
		return nil, fmt.Errorf("new page id: %w", err)
	}
	page := &Page{id: pageID, url: url, clock: c.clock}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, pageID)
	c.pages[pageID] = page
	return page, nil
}

// Disconnect removes the page and reports whether it was present.
func (c *Clients) Disconnect(pageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pages[pageID]; !ok {
		return false
	}
	delete(c.pages, pageID)
	for i, existing := range c.order {
		if existing == pageID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the open pages in connection order.
func (c *Clients) List(ctx context.Context) ([]domain.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Client, 0, len(c.order))
	for _, pageID := range c.order {
		out = append(out, c.pages[pageID])
	}
	return out, nil
}

// Claim takes control of all open pages without a reload.
func (c *Clients) Claim(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claims++
	return nil
}

// Claims returns how many times the registry has been claimed.
func (c *Clients) Claims() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claims
}

// OpenWindow opens a new page at url, focused.
func (c *Clients) OpenWindow(ctx context.Context, url string) (domain.Client, error) {
	page, err := c.Connect(url)
	if err != nil {
		return nil, err
	}
	if err := page.Focus(ctx); err != nil {
		return nil, err
	}
	return page, nil
}

var _ domain.ClientRegistry = (*Clients)(nil)
