// Package server exposes the bridge's HTTP surface: a small REST API
// plus an MCP-style method dispatch, both translating onto the mailbox
// service and the delivery sender. Credentials arrive per request and
// are never logged or persisted.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jersilb1400/icloud-email-service/internal/delivery"
	"github.com/jersilb1400/icloud-email-service/internal/journal"
	"github.com/jersilb1400/icloud-email-service/internal/mailbox"
)

// MailboxService is the set of IMAP-backed operations the handlers
// depend on. The concrete *mailbox.Service satisfies it; tests supply
// fakes.
type MailboxService interface {
	ListMailboxes(ctx context.Context, creds mailbox.Credentials) ([]mailbox.Folder, error)
	RecentEmails(ctx context.Context, creds mailbox.Credentials, mailboxName string, limit int) ([]mailbox.EmailSummary, error)
	SearchEmails(ctx context.Context, creds mailbox.Credentials, mailboxName string, query mailbox.SearchQuery, limit int) ([]mailbox.EmailSummary, error)
	GetEmail(ctx context.Context, creds mailbox.Credentials, mailboxName string, uid uint32) (*mailbox.Email, error)
}

// Server wires the HTTP routes to the mailbox service and the
// delivery sender. The journal is optional and may be nil.
type Server struct {
	mail    MailboxService
	sender  delivery.Sender
	journal *journal.Journal
	log     zerolog.Logger
}

// New creates the HTTP server facade.
func New(mail MailboxService, sender delivery.Sender, jrnl *journal.Journal, log zerolog.Logger) *Server {
	return &Server{mail: mail, sender: sender, journal: jrnl, log: log}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/mailboxes", s.handleMailboxes)
	r.Get("/emails", s.handleEmails)
	r.Get("/email/{id}", s.handleEmail)
	r.Get("/search", s.handleSearch)
	r.Post("/send", s.handleSend)
	r.Post("/mcp", s.handleMCP)
	r.Get("/deliveries", s.handleDeliveries)

	return r
}

// requestLogger logs one line per request with a generated request id.
// Only the path is logged: query strings carry credentials.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// statusWriter captures the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
