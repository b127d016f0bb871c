// Package server is the HTTP trigger boundary. Send and delete requests are
// acknowledged immediately and handed to the batch runner fire-and-forget;
// the caller never observes batch completion.
package server

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/config"
)

// BatchStarter dispatches batches; both calls return a batch ID immediately.
type BatchStarter interface {
	StartSend(message string, recipients []string) string
	StartDelete(recipients []string) string
}

// HistoryReader returns parsed outcome records, newest first.
type HistoryReader interface {
	Entries() ([]schemas.HistoryEntry, error)
}

// ContactStore reads and appends contacts.
type ContactStore interface {
	Load() ([]schemas.Contact, error)
	Add(c schemas.Contact) (schemas.Contact, error)
}

// MessageStore persists the default message text.
type MessageStore interface {
	DefaultMessage() string
	SaveDefaultMessage(msg string) error
}

// Server hosts the trigger boundary.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	logger     *zap.Logger
}

// New wires the handler and middleware chain.
func New(cfg config.ServerConfig, handler *Handler, logger *zap.Logger) *Server {
	s := &Server{handler: handler, logger: logger.Named("server")}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/get-defaults", handler.GetDefaults)
	mux.HandleFunc("/get-contacts", handler.GetContacts)
	mux.HandleFunc("/add-contact", handler.AddContact)
	mux.HandleFunc("/get-history", handler.GetHistory)
	mux.HandleFunc("/run-script", handler.RunSend)
	mux.HandleFunc("/delete-last-message", handler.RunDelete)

	chain := s.recovery(s.logging(mux))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      chain,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests. In-flight batches keep running; they
// are fire-and-forget workers, not request state.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// recovery converts handler panics into 500s instead of dropped connections.
func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Handler panic",
					zap.Any("panic", rec), zap.String("path", r.URL.Path))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Request",
			zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
