// Package fcm delivers notifications through the Firebase Cloud Messaging
// HTTP v1 API.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/hejijunhao/aftershock/internal/notify"
)

const (
	defaultEndpoint = "https://fcm.googleapis.com"
	messagingScope  = "https://www.googleapis.com/auth/firebase.messaging"
	defaultRate     = 20 // sends per second
	defaultTimeout  = 10 * time.Second
)

// Option configures a Sender.
type Option func(*Sender)

// WithEndpoint overrides the FCM API base URL.
func WithEndpoint(url string) Option {
	return func(s *Sender) { s.endpoint = url }
}

// WithRate limits sends per second. Burst equals the rate.
func WithRate(perSecond int) Option {
	return func(s *Sender) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// Sender implements notify.Sender for FCM.
type Sender struct {
	client    *http.Client
	projectID string
	endpoint  string
	limiter   *rate.Limiter
}

// APIError is a non-2xx answer from FCM.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fcm: HTTP %d: %s", e.StatusCode, e.Body)
}

// NewFromFile authenticates with a service account key file.
func NewFromFile(ctx context.Context, path string, opts ...Option) (*Sender, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fcm: reading credentials: %w", err)
	}
	return NewFromJSON(ctx, data, opts...)
}

// NewFromJSON authenticates with a service account key. The project is
// taken from the key's project_id.
func NewFromJSON(ctx context.Context, key []byte, opts ...Option) (*Sender, error) {
	var meta struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(key, &meta); err != nil {
		return nil, fmt.Errorf("fcm: parsing credentials: %w", err)
	}
	if meta.ProjectID == "" {
		return nil, fmt.Errorf("fcm: credentials have no project_id")
	}

	cfg, err := google.JWTConfigFromJSON(key, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("fcm: %w", err)
	}
	client := cfg.Client(ctx)
	client.Timeout = defaultTimeout
	return New(meta.ProjectID, client, opts...), nil
}

// New creates a Sender that uses an already authenticated client.
func New(projectID string, client *http.Client, opts ...Option) *Sender {
	s := &Sender{
		client:    client,
		projectID: projectID,
		endpoint:  defaultEndpoint,
		limiter:   rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sendRequest struct {
	Message message `json:"message"`
}

type message struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send posts one message to the target token.
func (s *Sender) Send(ctx context.Context, token string, n notify.Notification) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("fcm: %w", err)
	}

	body, err := json.Marshal(sendRequest{Message: message{
		Token:        token,
		Notification: notification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
	}})
	if err != nil {
		return fmt.Errorf("fcm: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.endpoint, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fcm: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
}
