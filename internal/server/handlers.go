package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jersilb1400/icloud-email-service/internal/delivery"
	"github.com/jersilb1400/icloud-email-service/internal/mailbox"
)

// Defaults for the listing and search return-count caps.
const (
	defaultEmailLimit  = 20
	defaultSearchLimit = 50
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "icloud-email-service",
		"endpoints": []string{
			"GET /health",
			"GET /mailboxes",
			"GET /emails",
			"GET /email/{id}",
			"GET /search",
			"POST /send",
			"POST /mcp",
			"GET /deliveries",
		},
		"mcpMethods": []string{
			"list_mailboxes", "get_emails", "search_emails", "send_email",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleMailboxes(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentialsFromQuery(w, r)
	if !ok {
		return
	}

	folders, err := s.mail.ListMailboxes(r.Context(), creds)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"mailboxes": folders,
	})
}

func (s *Server) handleEmails(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentialsFromQuery(w, r)
	if !ok {
		return
	}

	mailboxName := queryDefault(r, "mailbox", "INBOX")
	limit := queryInt(r, "limit", defaultEmailLimit)

	emails, err := s.mail.RecentEmails(r.Context(), creds, mailboxName, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"mailbox": mailboxName,
		"count":   len(emails),
		"emails":  emails,
	})
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentialsFromQuery(w, r)
	if !ok {
		return
	}

	uid, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid email id")
		return
	}
	mailboxName := queryDefault(r, "mailbox", "INBOX")

	email, err := s.mail.GetEmail(r.Context(), creds, mailboxName, uint32(uid))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"email":   email,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentialsFromQuery(w, r)
	if !ok {
		return
	}

	mailboxName := queryDefault(r, "mailbox", "INBOX")
	limit := queryInt(r, "limit", defaultSearchLimit)

	query := mailbox.SearchQuery{
		Text:    r.URL.Query().Get("query"),
		From:    r.URL.Query().Get("from"),
		To:      r.URL.Query().Get("to"),
		Subject: r.URL.Query().Get("subject"),
	}

	var ok2 bool
	if query.Since, ok2 = queryDate(r, "since"); !ok2 {
		respondError(w, http.StatusBadRequest, "Invalid since date")
		return
	}
	if query.Before, ok2 = queryDate(r, "before"); !ok2 {
		respondError(w, http.StatusBadRequest, "Invalid before date")
		return
	}

	emails, err := s.mail.SearchEmails(r.Context(), creds, mailboxName, query, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"mailbox": mailboxName,
		"count":   len(emails),
		"emails":  emails,
	})
}

// sendRequest is the POST /send body. Recipient lists accept
// comma-separated addresses.
type sendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Cc       string `json:"cc"`
	Bcc      string `json:"bcc"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.send(w, r, body)
}

// send runs a delivery for the REST entry point.
func (s *Server) send(w http.ResponseWriter, r *http.Request, body sendRequest) {
	req := deliveryRequest(body)

	result, err := s.sender.Send(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.recordDelivery(r, body, req, result)

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"messageId": result.MessageID,
		"transport": result.Transport,
	})
}

// deliveryRequest maps a decoded send body onto the transport request.
func deliveryRequest(body sendRequest) delivery.Request {
	return delivery.Request{
		From:     body.From,
		To:       splitAddresses(body.To),
		Cc:       splitAddresses(body.Cc),
		Bcc:      splitAddresses(body.Bcc),
		Subject:  body.Subject,
		Text:     body.Text,
		HTML:     body.HTML,
		Username: body.Username,
		Password: body.Password,
	}
}

// recordDelivery journals a successful send when the journal is
// enabled. Journal failures are logged, never surfaced: the message is
// already on its way.
func (s *Server) recordDelivery(r *http.Request, body sendRequest, req delivery.Request, result *delivery.Result) {
	if s.journal == nil {
		return
	}
	sender := body.From
	if sender == "" {
		sender = body.Username
	}
	if err := s.journal.Record(
		r.Context(), result.MessageID, result.Transport,
		sender, req.To, req.Subject,
	); err != nil {
		s.log.Warn().Err(err).Msg("recording delivery failed")
	}
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, http.StatusNotFound, "Delivery journal is not enabled")
		return
	}

	entries, err := s.journal.Recent(r.Context(), queryInt(r, "limit", defaultSearchLimit))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"deliveries": entries,
	})
}

// respondServiceError maps the error taxonomy onto HTTP statuses.
// Provider messages pass through; credentials never appear in them.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case delivery.IsValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case mailbox.IsNotFound(err):
		respondError(w, http.StatusNotFound, "Email not found")
	case mailbox.IsMailboxNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// credentialsFromQuery pulls the per-request credentials from the
// query string, failing fast with a 400 when either is missing.
func credentialsFromQuery(w http.ResponseWriter, r *http.Request) (mailbox.Credentials, bool) {
	creds := mailbox.Credentials{
		Username: r.URL.Query().Get("username"),
		Password: r.URL.Query().Get("password"),
	}
	if creds.Username == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: username, password")
		return mailbox.Credentials{}, false
	}
	return creds, true
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// queryDate parses an optional date parameter, accepting YYYY-MM-DD or
// RFC 3339.
func queryDate(r *http.Request, key string) (time.Time, bool) {
	return parseDateParam(r.URL.Query().Get(key))
}

// splitAddresses turns a comma-separated address list into a slice,
// dropping empty entries.
func splitAddresses(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
