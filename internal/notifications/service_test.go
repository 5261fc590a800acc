package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telex/internal/config"
	"telex/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyExtractionFailed(context.Background(), "/in/a.pdf", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func newServer(t *testing.T, got *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name: "extraction failed",
			send: func(s notifications.Service) error {
				return s.NotifyExtractionFailed(context.Background(), "/srv/in/broken.pdf", errors.New("unreadable or corrupt PDF"))
			},
			expectTitle:    "Telex - Extraction Failed",
			expectBody:     "Could not read broken.pdf\nunreadable or corrupt PDF\nThe file was left in place.",
			expectTags:     "telex,extract,failed",
			expectPriority: "high",
		},
		{
			name: "delete failed",
			send: func(s notifications.Service) error {
				return s.NotifyDeleteFailed(context.Background(), "/srv/in/a.pdf", errors.New("permission denied"))
			},
			expectTitle: "Telex - Delete Failed",
			expectBody:  "Text captured but /srv/in/a.pdf could not be removed\npermission denied",
			expectTags:  "telex,delete,failed",
		},
		{
			name: "delivery failed",
			send: func(s notifications.Service) error {
				return s.NotifyDeliveryFailed(context.Background(), "Priority Telegram", []string{"ops@example.com", "duty@example.com"}, errors.New("535 auth failed"))
			},
			expectTitle:    "Telex - Delivery Failed",
			expectBody:     "Message \"Priority Telegram\" to ops@example.com, duty@example.com was dropped\n535 auth failed",
			expectTags:     "telex,mail,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("lock held"), "startup")
			},
			expectTitle:    "Telex - Error",
			expectBody:     "Error in startup: lock held",
			expectTags:     "telex,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "Telex - Test",
			expectBody:     "Notification system test",
			expectTags:     "telex,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := newServer(t, &got)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectBody {
				t.Fatalf("expected body %q, got %q", tc.expectBody, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	var got captured
	server := newServer(t, &got)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ExtractionFailures = false
	cfg.Notifications.DeliveryFailures = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	_ = svc.NotifyExtractionFailed(ctx, "/a.pdf", nil)
	_ = svc.NotifyDeleteFailed(ctx, "/a.pdf", nil)
	_ = svc.NotifyDeliveryFailed(ctx, "s", nil, nil)
	if got.calls != 0 {
		t.Fatalf("expected suppressed alerts, got %d calls", got.calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
