// Package status serves a read-only HTTP view of a running node.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/auctions"
	"github.com/dedis/p2p_auctions/rpc"
)

// Service is the part of the auction service the status pages show.
type Service interface {
	Methods() []string
	Registry() *auctions.Registry
}

// Handler answers the status routes.
type Handler struct {
	desc    *rpc.Descriptor
	service Service
	started time.Time
}

// NewHandler returns a handler showing desc and the state of service.
func NewHandler(desc *rpc.Descriptor, service Service) *Handler {
	return &Handler{desc: desc, service: service, started: time.Now()}
}

// RegisterRoutes adds the status routes to r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/identity", h.identity)
	r.Get("/methods", h.methods)
	r.Get("/auctions", h.list)
	r.Get("/auctions/{id}", h.get)
}

// Router returns a router with every status route.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     h.desc.Service,
		"transport":   h.desc.Transport,
		"address":     h.desc.Address.String(),
		"url":         h.desc.URL,
		"description": h.desc.Description,
	})
}

func (h *Handler) methods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Methods())
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Registry().List())
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auctions.ErrAuctionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Couldn't write status reply:", err)
	}
}

// Server is a running status server.
type Server struct {
	http *http.Server
	addr net.Addr
}

// Serve starts serving h on addr in the background.
func Serve(addr string, h *Handler) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		http: &http.Server{Handler: h.Router(), ReadHeaderTimeout: 5 * time.Second},
		addr: l.Addr(),
	}
	go func() {
		if err := s.http.Serve(l); err != http.ErrServerClosed {
			log.Error("Status server stopped:", err)
		}
	}()
	log.Lvl2("Serving status on", s.addr)
	return s, nil
}

// Addr is the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Close stops the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
