// Package audit exports tenant lifecycle audit records to external
// destinations. The audit_logs database table is the system of record and is
// always written by the orchestrators; shipping is additional best-effort
// export so records can reach a SIEM or log aggregator independently of the
// database. Multiple simultaneous destinations (file, webhook) are supported
// via the Shipper interface.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/atriumhq/atrium/internal/config"
)

// LogEntry is one exported audit record.
type LogEntry struct {
	Timestamp    time.Time              `json:"timestamp"`
	Action       string                 `json:"action"`
	TenantID     string                 `json:"tenant_id,omitempty"`
	Actor        string                 `json:"actor,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
}

// Shipper sends audit records to one destination.
type Shipper interface {
	Ship(ctx context.Context, entry *LogEntry) error
	Close() error
}

// NewFromConfig builds a MultiShipper from the audit configuration. With no
// destinations enabled it returns an empty shipper that drops everything.
func NewFromConfig(cfg config.AuditConfig) (*MultiShipper, error) {
	ms := &MultiShipper{}

	if cfg.File.Enabled {
		fs, err := NewFileShipper(cfg.File.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file shipper: %w", err)
		}
		ms.shippers = append(ms.shippers, fs)
	}

	if cfg.Webhook.Enabled {
		ms.shippers = append(ms.shippers, NewWebhookShipper(cfg.Webhook.URL, cfg.Webhook.Headers, cfg.Webhook.Timeout))
	}

	return ms, nil
}

// MultiShipper fans one record out to every configured destination.
type MultiShipper struct {
	mu       sync.RWMutex
	shippers []Shipper
}

// Ship sends the entry to all destinations. A failing destination does not
// stop the others; the last error is returned.
func (ms *MultiShipper) Ship(ctx context.Context, entry *LogEntry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Ship(ctx, entry); err != nil {
			lastErr = err
			slog.Warn("audit shipper error", "error", err)
		}
	}
	return lastErr
}

// Close closes all destinations.
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// FileShipper appends records as JSON lines to a local file.
type FileShipper struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileShipper opens (or creates) the audit export file for appending.
func NewFileShipper(path string) (*FileShipper, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit export file: %w", err)
	}
	return &FileShipper{file: file}, nil
}

// Ship writes one JSON line.
func (fs *FileShipper) Ship(_ context.Context, entry *LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close closes the file.
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}

// WebhookShipper POSTs each record to an HTTP endpoint.
type WebhookShipper struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookShipper creates a webhook shipper. A zero timeout defaults to 10
// seconds.
func NewWebhookShipper(url string, headers map[string]string, timeout time.Duration) *WebhookShipper {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookShipper{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ship POSTs the entry as JSON.
func (ws *WebhookShipper) Ship(ctx context.Context, entry *LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op for webhooks.
func (ws *WebhookShipper) Close() error { return nil }
