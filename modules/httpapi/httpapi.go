// Package httpapi exposes the core's runtime surface over HTTP: per-module
// lifecycle status and a snapshot of the shared state tree. It exists as the
// network-facing exerciser of the module contract; the core itself stays
// agnostic to transport.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/audiostracker/appcore"
)

// ModuleName is the registration name for this module.
const ModuleName = "httpapi"

// Module serves the status API.
type Module struct {
	appcore.BaseModule
	cfg      Config
	server   *http.Server
	listener net.Listener
	serveErr chan error
}

// New returns a factory for the httpapi module.
func New(cfg Config) appcore.ModuleFactory {
	return func(core *appcore.AppCore) appcore.Module {
		cfg.applyDefaults()
		return &Module{
			BaseModule: appcore.NewBaseModule(core, ModuleName),
			cfg:        cfg,
		}
	}
}

// Init binds the listener, starts serving, and confirms the listener
// answers before reporting ready. A listener that never comes up fails init
// with a bounded wait error instead of hanging.
func (m *Module) Init(ctx context.Context) error {
	listener, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", m.cfg.Addr, err)
	}
	m.listener = listener

	m.server = &http.Server{
		Handler:           m.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.serveErr = make(chan error, 1)
	go func() {
		m.serveErr <- m.server.Serve(listener)
	}()

	addr := listener.Addr().String()
	err = appcore.WaitFor(ctx, "http listener "+addr, func(ctx context.Context) error {
		dialer := net.Dialer{Timeout: time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}, appcore.WaitOptions{})
	if err != nil {
		_ = m.server.Close()
		return err
	}

	if err := m.SetState("httpapi.addr", addr); err != nil {
		return err
	}
	return nil
}

// Destroy shuts the server down gracefully within the given context.
// Idempotent.
func (m *Module) Destroy(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	server := m.server
	m.server = nil

	// Subscriptions are released even when shutdown fails; a half-dead
	// module must not keep receiving events.
	defer m.ReleaseSubscriptions()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-m.serveErr; err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server exited: %w", err)
	}
	return nil
}

// Addr returns the bound listen address, usable by collaborators that look
// this module up via GetModule.
func (m *Module) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *Module) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/modules", m.handleModules)
	r.Get("/state", m.handleState)
	return r
}

func (m *Module) handleModules(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.Core().Registry().ModuleStatuses())
}

func (m *Module) handleState(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.Core().State().Snapshot())
}

func (m *Module) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.Logger().Error("Failed to encode response", "error", err)
	}
}
