package app

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnqh/di-web/internal/registration"
	"github.com/johnqh/di-web/internal/services/worker/assets"
	"github.com/johnqh/di-web/internal/services/worker/domain"
	"github.com/johnqh/di-web/internal/services/worker/host"
	"github.com/johnqh/di-web/internal/services/worker/storage"
)

const defaultEventListLimit = 50

// Gateway is the HTTP surface of the worker runtime: the application fetch
// proxy, the worker script bytes, the control endpoints under /worker/, and
// the operational routes. Paths under /worker/ are reserved and never
// proxied upstream.
type Gateway struct {
	host       *host.Host
	controller *registration.Controller
	fetcher    domain.Fetcher
	events     storage.EventLister
	mux        *http.ServeMux
}

// NewGateway wires the gateway routes.
func NewGateway(workerHost *host.Host, controller *registration.Controller, fetcher domain.Fetcher, events storage.EventLister) *Gateway {
	g := &Gateway{
		host:       workerHost,
		controller: controller,
		fetcher:    fetcher,
		events:     events,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/up", g.handleUp)
	mux.Handle("/metrics", promhttp.Handler())
	scripts := assets.Handler()
	mux.Handle(assets.ScriptPath, scripts)
	mux.Handle(assets.MessagingScriptPath, scripts)
	mux.HandleFunc("/worker/state", g.handleState)
	mux.HandleFunc("/worker/push", g.handlePush)
	mux.HandleFunc("/worker/sync", g.handleSync)
	mux.HandleFunc("/worker/message", g.handleMessage)
	mux.HandleFunc("/worker/update", g.handleUpdate)
	mux.HandleFunc("/worker/unregister", g.handleUnregister)
	mux.HandleFunc("/worker/clients", g.handleClients)
	mux.HandleFunc("/worker/clients/", g.handleClientDetail)
	mux.HandleFunc("/worker/events", g.handleEvents)
	mux.HandleFunc("/", g.handleFetch)
	g.mux = mux
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *Gateway) handleUp(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleFetch routes application traffic through the active worker. Without
// a registered worker the request goes straight upstream, matching a page
// whose worker is absent.
func (g *Gateway) handleFetch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}
	req := domain.Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header,
		Body:   body,
	}

	res, err := g.host.Fetch(r.Context(), req)
	if errors.Is(err, host.ErrNotRegistered) {
		res, err = g.fetcher.Fetch(r.Context(), req)
	}
	if err != nil {
		log.Printf("gateway fetch %s %s: %v", r.Method, r.URL, err)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	header := w.Header()
	for name, values := range res.Header {
		for _, value := range values {
			header.Add(name, value)
		}
	}
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write(res.Body); err != nil {
		log.Printf("gateway write %s: %v", r.URL, err)
	}
}

func (g *Gateway) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		State string `json:"state"`
	}{State: string(g.controller.State())})
}

func (g *Gateway) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read push payload", http.StatusBadRequest)
		return
	}
	if err := g.host.Push(r.Context(), payload); err != nil {
		respondWorkerError(w, "push", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	if tag == "" {
		tag = domain.SyncTagResync
	}
	if err := g.host.Sync(r.Context(), tag); err != nil {
		respondWorkerError(w, "sync", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}
	g.host.Message(r.Context(), domain.Message{Type: msg.Type})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := g.host.Update(r.Context()); err != nil {
		respondWorkerError(w, "update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Unregistering waits for readiness, which never arrives without a
	// registration. Answer the empty case directly.
	if g.host.Registration() == nil {
		writeJSON(w, http.StatusOK, struct {
			Existed bool `json:"existed"`
		}{Existed: false})
		return
	}
	existed, err := g.controller.Unregister(r.Context())
	if err != nil {
		log.Printf("gateway unregister: %v", err)
		http.Error(w, "unregister failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Existed bool `json:"existed"`
	}{Existed: existed})
}

type clientView struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	FocusedAt string `json:"focused_at,omitempty"`
}

func (g *Gateway) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pages, err := g.host.Clients().List(r.Context())
		if err != nil {
			http.Error(w, "list clients", http.StatusInternalServerError)
			return
		}
		views := make([]clientView, 0, len(pages))
		for _, client := range pages {
			view := clientView{ID: client.ID(), URL: client.URL()}
			if page, ok := client.(*host.Page); ok && !page.FocusedAt().IsZero() {
				view.FocusedAt = page.FocusedAt().Format(time.RFC3339)
			}
			views = append(views, view)
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid client", http.StatusBadRequest)
			return
		}
		page, err := g.host.Clients().Connect(body.URL)
		if err != nil {
			http.Error(w, "connect client", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, clientView{ID: page.ID(), URL: page.URL()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleClientDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pageID := strings.TrimPrefix(r.URL.Path, "/worker/clients/")
	if pageID == "" || strings.Contains(pageID, "/") {
		http.Error(w, "client not found", http.StatusNotFound)
		return
	}
	if !g.host.Clients().Disconnect(pageID) {
		http.Error(w, "client not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := defaultEventListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := g.events.ListEvents(r.Context(), limit)
	if err != nil {
		log.Printf("gateway list events: %v", err)
		http.Error(w, "list events", http.StatusInternalServerError)
		return
	}
	type eventView struct {
		ID        string `json:"id"`
		Source    string `json:"source"`
		Kind      string `json:"kind"`
		Detail    string `json:"detail,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	views := make([]eventView, 0, len(records))
	for _, record := range records {
		views = append(views, eventView{
			ID:        record.ID,
			Source:    record.Source,
			Kind:      record.Kind,
			Detail:    record.Detail,
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// respondWorkerError maps worker delivery failures onto control route
// statuses: no registered worker reads as service unavailable, anything else
// as an upstream failure.
func respondWorkerError(w http.ResponseWriter, op string, err error) {
	log.Printf("gateway %s: %v", op, err)
	if errors.Is(err, host.ErrNotRegistered) {
		http.Error(w, "no worker registered", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, op+" failed", http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("gateway encode response: %v", err)
	}
}
