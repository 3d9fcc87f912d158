// Package webhook posts notifications to a Slack-compatible incoming webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
)

const (
	DefaultChannel  = "#technical"
	DefaultUsername = "WeatherFlow"
	DefaultIcon     = ":mostly_sunny:"
)

// severityColors maps severities onto Slack attachment colours.
var severityColors = map[domain.Severity]string{
	domain.SeverityOK:      "good",
	domain.SeverityWarning: "warning",
	domain.SeverityError:   "danger",
	domain.SeverityInfo:    "#439FE0",
}

type payload struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Fallback string   `json:"fallback"`
	Color    string   `json:"color"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	MrkdwnIn []string `json:"mrkdwn_in"`
	TS       int64    `json:"ts"`
}

// Slack sends notifications to an incoming webhook URL.
type Slack struct {
	url      string
	channel  string
	username string
	icon     string
	client   *http.Client
}

// Option configures the Slack sink.
type Option func(*Slack)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Slack) {
		if client != nil {
			s.client = client
		}
	}
}

// WithChannel overrides the target channel. Empty keeps the default.
func WithChannel(channel string) Option {
	return func(s *Slack) {
		if channel != "" {
			s.channel = channel
		}
	}
}

// WithIdentity overrides the posting username and emoji icon. Empty values
// keep the defaults.
func WithIdentity(username, icon string) Option {
	return func(s *Slack) {
		if username != "" {
			s.username = username
		}
		if icon != "" {
			s.icon = icon
		}
	}
}

// NewSlack constructs a Slack sink.
func NewSlack(url string, opts ...Option) (*Slack, error) {
	if url == "" {
		return nil, errors.New("webhook: empty url")
	}
	s := &Slack{
		url:      url,
		channel:  DefaultChannel,
		username: DefaultUsername,
		icon:     DefaultIcon,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Notify posts n as a single coloured attachment.
func (s *Slack) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(s.buildPayload(n))
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

func (s *Slack) buildPayload(n domain.Notification) payload {
	color, ok := severityColors[n.Severity]
	if !ok {
		color = severityColors[domain.SeverityError]
	}
	return payload{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.icon,
		Attachments: []attachment{{
			Fallback: n.Title,
			Color:    color,
			Title:    n.Title,
			Text:     n.Body,
			MrkdwnIn: []string{"text"},
			TS:       n.CreatedAt.Unix(),
		}},
	}
}
