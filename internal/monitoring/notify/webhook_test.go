package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookChannel_PostsPayload(t *testing.T) {
	received := make(chan webhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var p webhookPayload
		require.NoError(t, json.Unmarshal(body, &p))
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, "rydeshare-app", 5*time.Second)
	ch.sent = make(chan error, 1)

	alert := testAlert(alerting.SeverityCritical)
	require.NoError(t, ch.Deliver(alert))

	select {
	case err := <-ch.sent:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook delivery did not complete")
	}

	p := <-received
	assert.Equal(t, alert.ID, p.Alert.ID)
	assert.Equal(t, "rydeshare-app", p.Service)
	assert.NotZero(t, p.Timestamp)
}

func TestWebhookChannel_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, "rydeshare-app", 5*time.Second)
	ch.sent = make(chan error, 1)

	require.NoError(t, ch.Deliver(testAlert(alerting.SeverityWarning)), "Deliver itself never fails")

	select {
	case err := <-ch.sent:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	case <-time.After(5 * time.Second):
		t.Fatal("webhook delivery did not complete")
	}
}

func TestWebhookChannel_EmptyURLIsNoop(t *testing.T) {
	ch := NewWebhookChannel("", "rydeshare-app", time.Second)
	ch.sent = make(chan error, 1)
	require.NoError(t, ch.Deliver(testAlert(alerting.SeverityInfo)))

	select {
	case <-ch.sent:
		t.Fatal("no delivery expected for empty URL")
	case <-time.After(50 * time.Millisecond):
	}
}
