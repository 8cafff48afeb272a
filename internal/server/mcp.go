package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jersilb1400/icloud-email-service/internal/mailbox"
)

// mcpRequest is the POST /mcp body: a method name and its parameters.
type mcpRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// mcpParams covers the parameter shapes of all four methods; each
// method reads the fields it cares about.
type mcpParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Mailbox  string `json:"mailbox"`
	Limit    int    `json:"limit"`

	Query   string `json:"query"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Since   string `json:"since"`
	Before  string `json:"before"`

	Cc   string `json:"cc"`
	Bcc  string `json:"bcc"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

// handleMCP dispatches the method-call wrapper over the same four
// operations the REST routes expose. Successes are wrapped in
// {"result": ...} instead of the flat success envelope.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var req mcpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var params mcpParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid params")
			return
		}
	}

	switch req.Method {
	case "list_mailboxes":
		s.mcpListMailboxes(w, r, params)
	case "get_emails":
		s.mcpGetEmails(w, r, params)
	case "search_emails":
		s.mcpSearchEmails(w, r, params)
	case "send_email":
		s.mcpSendEmail(w, r, params)
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *Server) mcpListMailboxes(w http.ResponseWriter, r *http.Request, params mcpParams) {
	creds, ok := mcpCredentials(w, params)
	if !ok {
		return
	}

	folders, err := s.mail.ListMailboxes(r.Context(), creds)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondResult(w, map[string]any{"mailboxes": folders})
}

func (s *Server) mcpGetEmails(w http.ResponseWriter, r *http.Request, params mcpParams) {
	creds, ok := mcpCredentials(w, params)
	if !ok {
		return
	}

	mailboxName := params.Mailbox
	if mailboxName == "" {
		mailboxName = "INBOX"
	}
	limit := params.Limit
	if limit < 1 {
		limit = defaultEmailLimit
	}

	emails, err := s.mail.RecentEmails(r.Context(), creds, mailboxName, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondResult(w, map[string]any{
		"mailbox": mailboxName,
		"count":   len(emails),
		"emails":  emails,
	})
}

func (s *Server) mcpSearchEmails(w http.ResponseWriter, r *http.Request, params mcpParams) {
	creds, ok := mcpCredentials(w, params)
	if !ok {
		return
	}

	mailboxName := params.Mailbox
	if mailboxName == "" {
		mailboxName = "INBOX"
	}
	limit := params.Limit
	if limit < 1 {
		limit = defaultSearchLimit
	}

	query := mailbox.SearchQuery{
		Text:    params.Query,
		From:    params.From,
		To:      params.To,
		Subject: params.Subject,
	}
	var ok2 bool
	if query.Since, ok2 = parseDateParam(params.Since); !ok2 {
		respondError(w, http.StatusBadRequest, "Invalid since date")
		return
	}
	if query.Before, ok2 = parseDateParam(params.Before); !ok2 {
		respondError(w, http.StatusBadRequest, "Invalid before date")
		return
	}

	emails, err := s.mail.SearchEmails(r.Context(), creds, mailboxName, query, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondResult(w, map[string]any{
		"mailbox": mailboxName,
		"count":   len(emails),
		"emails":  emails,
	})
}

func (s *Server) mcpSendEmail(w http.ResponseWriter, r *http.Request, params mcpParams) {
	s.sendMCP(w, r, sendRequest{
		From:     params.From,
		To:       params.To,
		Cc:       params.Cc,
		Bcc:      params.Bcc,
		Subject:  params.Subject,
		Text:     params.Text,
		HTML:     params.HTML,
		Username: params.Username,
		Password: params.Password,
	})
}

// sendMCP mirrors send but wraps the success payload for MCP callers.
func (s *Server) sendMCP(w http.ResponseWriter, r *http.Request, body sendRequest) {
	req := deliveryRequest(body)

	result, err := s.sender.Send(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.recordDelivery(r, body, req, result)

	respondResult(w, map[string]any{
		"messageId": result.MessageID,
		"transport": result.Transport,
	})
}

func mcpCredentials(w http.ResponseWriter, params mcpParams) (mailbox.Credentials, bool) {
	if params.Username == "" || params.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: username, password")
		return mailbox.Credentials{}, false
	}
	return mailbox.Credentials{Username: params.Username, Password: params.Password}, true
}

func respondResult(w http.ResponseWriter, payload any) {
	respondJSON(w, http.StatusOK, map[string]any{"result": payload})
}

func parseDateParam(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
