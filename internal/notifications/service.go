package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "clipforge/0.1.0"

// Event identifies a job milestone.
type Event string

const (
	EventDraftReady   Event = "draft_ready"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]string

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventDraftReady:   cfg.Notifications.DraftReady,
			EventJobCompleted: cfg.Notifications.Completed,
			EventJobFailed:    cfg.Notifications.Errors,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	label := strings.TrimSpace(payload["source"])
	if label == "" {
		label = strings.TrimSpace(payload["jobId"])
	}
	switch event {
	case EventDraftReady:
		body := fmt.Sprintf("Draft ready: %s", label)
		if url := strings.TrimSpace(payload["url"]); url != "" {
			body += "\n" + url
		}
		return message{title: "clipforge - Draft Ready", body: body, tags: []string{"clipforge", "draft"}}, true
	case EventJobCompleted:
		body := fmt.Sprintf("Clip ready: %s", label)
		if outcome := payload["outcome"]; outcome != "" && outcome != "clip" {
			body += fmt.Sprintf(" (%s)", outcome)
		}
		if url := strings.TrimSpace(payload["url"]); url != "" {
			body += "\n" + url
		}
		return message{title: "clipforge - Clip Complete", body: body, tags: []string{"clipforge", "completed"}, priority: "high"}, true
	case EventJobFailed:
		var b strings.Builder
		b.WriteString("Error")
		if stage := strings.TrimSpace(payload["stage"]); stage != "" {
			b.WriteString(" during ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if errText := strings.TrimSpace(payload["error"]); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		if label != "" {
			b.WriteString("\nJob: ")
			b.WriteString(label)
		}
		return message{title: "clipforge - Error", body: b.String(), tags: []string{"clipforge", "error", "alert"}, priority: "high"}, true
	case EventTest:
		return message{title: "clipforge - Test", body: "Notification system test", tags: []string{"clipforge", "test"}, priority: "low"}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
