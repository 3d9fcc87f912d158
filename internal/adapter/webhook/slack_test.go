package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification(sev domain.Severity) domain.Notification {
	return domain.Notification{
		ID:           "9f0c7c2e-0000-4000-8000-000000000001",
		Title:        "Station ST-00000512 Battery is Low - Mode 1",
		Body:         "Battery Voltage is: 2.39",
		Severity:     sev,
		Scope:        domain.ScopeStation,
		DeviceSerial: "ST-00000512",
		Event:        domain.EventBatteryLow,
		CreatedAt:    time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestSlack_Notify(t *testing.T) {
	payloadCh := make(chan payload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := NewSlack(server.URL, WithHTTPClient(server.Client()), WithChannel("#weather"))
	require.NoError(t, err)

	require.NoError(t, s.Notify(context.Background(), testNotification(domain.SeverityWarning)))

	got := <-payloadCh
	want := payload{
		Channel:   "#weather",
		Username:  DefaultUsername,
		IconEmoji: DefaultIcon,
		Attachments: []attachment{{
			Fallback: "Station ST-00000512 Battery is Low - Mode 1",
			Color:    "warning",
			Title:    "Station ST-00000512 Battery is Low - Mode 1",
			Text:     "Battery Voltage is: 2.39",
			MrkdwnIn: []string{"text"},
			TS:       1_700_000_000,
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSlack_SeverityColors(t *testing.T) {
	s, err := NewSlack("http://example.invalid")
	require.NoError(t, err)

	tests := []struct {
		sev  domain.Severity
		want string
	}{
		{domain.SeverityOK, "good"},
		{domain.SeverityWarning, "warning"},
		{domain.SeverityError, "danger"},
		{domain.SeverityInfo, "#439FE0"},
		{domain.Severity("bogus"), "danger"},
	}
	for _, tt := range tests {
		t.Run(string(tt.sev), func(t *testing.T) {
			p := s.buildPayload(testNotification(tt.sev))
			require.Len(t, p.Attachments, 1)
			assert.Equal(t, tt.want, p.Attachments[0].Color)
		})
	}
}

func TestSlack_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s, err := NewSlack(server.URL)
	require.NoError(t, err)

	err = s.Notify(context.Background(), testNotification(domain.SeverityOK))
	assert.EqualError(t, err, "webhook: non-2xx response 403")
}

func TestSlack_Identity(t *testing.T) {
	s, err := NewSlack("http://example.invalid", WithIdentity("tempest", ""), WithChannel(""))
	require.NoError(t, err)

	p := s.buildPayload(testNotification(domain.SeverityOK))
	assert.Equal(t, "tempest", p.Username)
	assert.Equal(t, DefaultIcon, p.IconEmoji)
	assert.Equal(t, DefaultChannel, p.Channel)
}

func TestNewSlack_EmptyURL(t *testing.T) {
	_, err := NewSlack("")
	assert.Error(t, err)
}
