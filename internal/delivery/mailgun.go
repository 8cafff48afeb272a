package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// defaultMailgunBaseURL is the public Mailgun API root. Tests point
// BaseURL at a local server instead.
const defaultMailgunBaseURL = "https://api.mailgun.net/v3"

// mailgunSender delivers through the Mailgun HTTP API with a
// process-wide key and domain. The from address is the caller's mail
// identity, falling back to the configured default.
type mailgunSender struct {
	baseURL    string
	apiKey     string
	domain     string
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

func newMailgunSender(cfg Config, log zerolog.Logger) *mailgunSender {
	baseURL := cfg.MailgunBaseURL
	if baseURL == "" {
		baseURL = defaultMailgunBaseURL
	}
	return &mailgunSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.MailgunAPIKey,
		domain:     cfg.MailgunDomain,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With().Str("transport", "mailgun").Logger(),
	}
}

// Send validates, form-encodes the message and posts it to the
// messages endpoint with Basic auth. Non-2xx responses surface the
// provider's error body verbatim.
func (m *mailgunSender) Send(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	from := fromAddress(req, m.cfg)
	if from == "" {
		return nil, &ValidationError{Missing: []string{"from"}}
	}

	form := url.Values{}
	form.Set("from", from)
	form.Set("to", strings.Join(req.To, ","))
	if len(req.Cc) > 0 {
		form.Set("cc", strings.Join(req.Cc, ","))
	}
	if len(req.Bcc) > 0 {
		form.Set("bcc", strings.Join(req.Bcc, ","))
	}
	form.Set("subject", req.Subject)
	if req.Text != "" {
		form.Set("text", req.Text)
	}
	if req.HTML != "" {
		form.Set("html", req.HTML)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", m.baseURL, m.domain)
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mailgun request: %w", err)
	}
	httpReq.SetBasicAuth("api", m.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, &DeliveryError{Transport: "mailgun", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading mailgun response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DeliveryError{
			Transport: "mailgun",
			Message:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing mailgun response: %w", err)
	}

	m.log.Info().Int("recipients", len(req.To)).Msg("message accepted")
	return &Result{MessageID: result.ID, Transport: "mailgun"}, nil
}
