package paced

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
)

// CallbackSecretHeader carries the per-run shared secret on callbacks.
const CallbackSecretHeader = "X-Pacing-Callback-Secret"

var (
	ErrInvalidURL       = errors.New("invalid callback url")
	ErrMetadataEndpoint = errors.New("callback url targets a cloud metadata endpoint")
	ErrInternalHost     = errors.New("callback url targets an internal address")
)

// NotificationPayload represents the JSON payload sent to the callback URL
type NotificationPayload struct {
	RunID           string             `json:"run_id"`
	Scenario        string             `json:"scenario,omitempty"`
	Status          models.RunStatus   `json:"status"`
	CreatedAtUnixMs int64              `json:"created_at_unix_ms"`
	StartedAtUnixMs int64              `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64              `json:"ended_at_unix_ms,omitempty"`
	Error           string             `json:"error,omitempty"`
	Summary         *models.RunSummary `json:"summary,omitempty"`
	Timestamp       int64              `json:"timestamp"` // When notification was sent
}

// Notifier posts run completion callbacks
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewNotifier creates a notifier from the daemon's notifier settings
func NewNotifier(cfg config.NotifierConfig) *Notifier {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		backoff: utils.NewBackoff(cfg.Backoff,
			time.Duration(cfg.BaseDelayMs)*time.Millisecond,
			time.Duration(cfg.MaxDelayMs)*time.Millisecond),
	}
}

// validateCallbackURL rejects non-http(s) URLs and hosts that would let a
// client make the daemon call cloud metadata or loopback services.
// "localhost" by name is allowed for development.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(strings.ReplaceAll(raw, "{run_id}", "x"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	if host == "metadata.google.internal" || host == "169.254.169.254" {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsUnspecified() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			return fmt.Errorf("%w: %s", ErrInternalHost, host)
		}
	}
	return nil
}

func newPayload(rec *RunRecord) NotificationPayload {
	return NotificationPayload{
		RunID:           rec.Run.ID,
		Scenario:        rec.Run.Scenario,
		Status:          rec.Run.Status,
		CreatedAtUnixMs: rec.Run.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Run.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Run.EndedAtUnixMs,
		Error:           rec.Run.Error,
		Summary:         rec.Summary,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}
}

// Notify sends a notification to the callback URL asynchronously
func (n *Notifier) Notify(callbackURL string, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}
	if rec == nil {
		logger.Warn("cannot notify: invalid run record", "callback_url", callbackURL)
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.Run.ID)
	payload := newPayload(rec)

	go func() {
		if err := n.sendNotification(finalURL, callbackSecret, payload); err != nil {
			logger.Error("failed to send notification after retries",
				"callback_url", finalURL,
				"run_id", payload.RunID,
				"status", payload.Status,
				"max_retries", n.maxRetries,
				"last_error", err)
		}
	}()
}

// sendNotification performs the HTTP POST with retries
func (n *Notifier) sendNotification(callbackURL string, callbackSecret string, payload NotificationPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(payloadJSON))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "pacing-core/1.0")
		if callbackSecret != "" {
			req.Header.Set(CallbackSecretHeader, callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		responseBody := string(bodyBytes)
		if len(responseBody) > 200 {
			responseBody = responseBody[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent successfully",
				"run_id", payload.RunID,
				"status", payload.Status,
				"status_code", resp.StatusCode)
			return nil
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"status_code", resp.StatusCode,
			"response_body", responseBody,
			"attempt", attempt+1)
	}
	return lastErr
}
