package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"telex/internal/config"
)

const userAgent = "Telex-Go/0.1.0"

// Service defines the notification surface exposed to pipeline workers.
type Service interface {
	NotifyExtractionFailed(ctx context.Context, path string, err error) error
	NotifyDeleteFailed(ctx context.Context, path string, err error) error
	NotifyDeliveryFailed(ctx context.Context, subject string, recipients []string, err error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:           topic,
		client:             &http.Client{Timeout: timeout},
		extractionFailures: cfg.Notifications.ExtractionFailures,
		deliveryFailures:   cfg.Notifications.DeliveryFailures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint           string
	client             *http.Client
	extractionFailures bool
	deliveryFailures   bool
}

func (n *ntfyService) NotifyExtractionFailed(ctx context.Context, path string, err error) error {
	if !n.extractionFailures {
		return nil
	}
	data := payload{
		title:    "Telex - Extraction Failed",
		message:  fmt.Sprintf("Could not read %s\n%s\nThe file was left in place.", filepath.Base(path), errorText(err)),
		tags:     []string{"telex", "extract", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeleteFailed(ctx context.Context, path string, err error) error {
	if !n.extractionFailures {
		return nil
	}
	data := payload{
		title:   "Telex - Delete Failed",
		message: fmt.Sprintf("Text captured but %s could not be removed\n%s", path, errorText(err)),
		tags:    []string{"telex", "delete", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeliveryFailed(ctx context.Context, subject string, recipients []string, err error) error {
	if !n.deliveryFailures {
		return nil
	}
	data := payload{
		title: "Telex - Delivery Failed",
		message: fmt.Sprintf("Message %q to %s was dropped\n%s",
			strings.TrimSpace(subject), strings.Join(recipients, ", "), errorText(err)),
		tags:     []string{"telex", "mail", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	builder.WriteString(errorText(err))

	data := payload{
		title:    "Telex - Error",
		message:  builder.String(),
		tags:     []string{"telex", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Telex - Test",
		message:  "Notification system test",
		tags:     []string{"telex", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func errorText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop returns a Service that discards every notification.
func Noop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyExtractionFailed(context.Context, string, error) error         { return nil }
func (noopService) NotifyDeleteFailed(context.Context, string, error) error             { return nil }
func (noopService) NotifyDeliveryFailed(context.Context, string, []string, error) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
