package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"biblepace/pkg/domain"
)

const (
	reminderTitle = "Rappel de lecture biblique"
	reminderBody  = "Il est temps de lire vos chapitres quotidiens !"
	reminderIcon  = "/icon.svg"
)

// Notifier delivers a user visible notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NewReminderNotification builds the fixed daily reminder.
func NewReminderNotification(now time.Time) domain.Notification {
	return domain.Notification{
		Tag:       "reminder-" + uuid.NewString(),
		Title:     reminderTitle,
		Body:      reminderBody,
		Icon:      reminderIcon,
		Badge:     reminderIcon,
		Vibrate:   []int{200, 100, 200},
		CreatedAt: now.UTC(),
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, note domain.Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "tag", note.Tag, "title", note.Title, "body", note.Body)
	return nil
}

// WebhookNotifier posts notifications as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string, client *http.Client) (*WebhookNotifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook URL required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, httpClient: client}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, note domain.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("webhook error: %s", msg)
	}
	return nil
}
