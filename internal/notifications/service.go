package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"piripper/internal/config"
)

const userAgent = "piripper/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyRipStarted(ctx context.Context, outputDir string) error
	NotifyRipCompleted(ctx context.Context, outputDir string, duration time.Duration) error
	NotifyOffloadCompleted(ctx context.Context, device string, runs int, bytes int64, leftover int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		rip:      cfg.Notifications.Rip,
		offload:  cfg.Notifications.Offload,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	rip     bool
	offload bool
	errors  bool
}

func (n *ntfyService) NotifyRipStarted(ctx context.Context, outputDir string) error {
	if !n.rip {
		return nil
	}
	return n.send(ctx, payload{
		title:   "piripper - Rip Started",
		message: fmt.Sprintf("Ripping disc into %s", runName(outputDir)),
		tags:    []string{"piripper", "rip", "started"},
	})
}

func (n *ntfyService) NotifyRipCompleted(ctx context.Context, outputDir string, duration time.Duration) error {
	if !n.rip {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	return n.send(ctx, payload{
		title:   "piripper - Rip Complete",
		message: fmt.Sprintf("💿 Rip complete: %s in %s", runName(outputDir), duration),
		tags:    []string{"piripper", "rip", "completed"},
	})
}

// NotifyOffloadCompleted reports moved runs. leftover counts runs that were
// copied but whose local directory could not be deleted.
func (n *ntfyService) NotifyOffloadCompleted(ctx context.Context, device string, runs int, bytes int64, leftover int) error {
	if !n.offload || runs == 0 {
		return nil
	}
	noun := "rips"
	if runs == 1 {
		noun = "rip"
	}
	message := fmt.Sprintf("Moved %d %s (%s) to %s", runs, noun, humanize.Bytes(uint64(max(bytes, 0))), strings.TrimSpace(device))
	tags := []string{"piripper", "offload", "completed"}
	if leftover > 0 {
		message += fmt.Sprintf("; %d still on local disk", leftover)
		tags = append(tags, "warning")
	}
	return n.send(ctx, payload{
		title:   "piripper - Offload Complete",
		message: message,
		tags:    tags,
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "piripper - Error",
		message:  builder.String(),
		tags:     []string{"piripper", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "piripper - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"piripper", "test"},
		priority: "low",
	})
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

// runName trims an output path to its run directory name.
func runName(outputDir string) string {
	outputDir = strings.TrimRight(strings.TrimSpace(outputDir), "/")
	if idx := strings.LastIndex(outputDir, "/"); idx >= 0 {
		return outputDir[idx+1:]
	}
	return outputDir
}

type noopService struct{}

func (noopService) NotifyRipStarted(context.Context, string) error                        { return nil }
func (noopService) NotifyRipCompleted(context.Context, string, time.Duration) error       { return nil }
func (noopService) NotifyOffloadCompleted(context.Context, string, int, int64, int) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                      { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
