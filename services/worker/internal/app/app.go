package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"biblepace/pkg/domain"
	"biblepace/pkg/store"
)

// Config holds runtime configuration for the worker core.
type Config struct {
	Lifecycle LifecycleConfig
	// Reminders persists the reminder time. Nil keeps it in memory only.
	Reminders  store.ReminderStore
	Notifier   Notifier
	Clock      Clock
	RootURL    string
	HTTPClient *http.Client
}

// ClickResult tells the page side what a notification click resolved to.
type ClickResult struct {
	Action string               `json:"action"`
	Window *domain.ClientWindow `json:"window,omitempty"`
	URL    string               `json:"url,omitempty"`
}

const (
	ClickFocus = "focus"
	ClickOpen  = "open"
)

// App is the worker core: cache lifecycle, asset proxy, reminder scheduling
// and notification routing.
type App struct {
	lifecycle *Lifecycle
	proxy     *Proxy
	scheduler *Scheduler
	reminders store.ReminderStore
	notifier  Notifier
	clients   *ClientRegistry
	clock     Clock
	rootURL   string

	mu    sync.Mutex
	shown map[string]domain.Notification
}

func New(cfg Config) (*App, error) {
	if cfg.Lifecycle.Clients == nil {
		cfg.Lifecycle.Clients = NewClientRegistry()
	}
	if cfg.Lifecycle.HTTPClient == nil {
		cfg.Lifecycle.HTTPClient = cfg.HTTPClient
	}
	lifecycle, err := NewLifecycle(cfg.Lifecycle)
	if err != nil {
		return nil, err
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewSystemClock(nil)
	}
	rootURL := strings.TrimSpace(cfg.RootURL)
	if rootURL == "" {
		rootURL = "/"
	}
	a := &App{
		lifecycle: lifecycle,
		proxy:     NewProxy(cfg.Lifecycle.Store, lifecycle, cfg.HTTPClient),
		reminders: cfg.Reminders,
		notifier:  notifier,
		clients:   cfg.Lifecycle.Clients,
		clock:     clock,
		rootURL:   rootURL,
		shown:     make(map[string]domain.Notification),
	}
	a.scheduler = NewScheduler(clock, a.fireReminder)
	return a, nil
}

// Start installs and activates the cache, then re-arms a persisted reminder.
// A failed install is logged and the previously active version keeps
// serving.
func (a *App) Start(ctx context.Context) error {
	if err := a.lifecycle.Start(ctx); err != nil {
		slog.Error("cache lifecycle failed", "version", a.lifecycle.Version(), "err", err)
	}
	return a.RestoreReminder(ctx)
}

// RestoreReminder arms the persisted reminder, if any.
func (a *App) RestoreReminder(ctx context.Context) error {
	if a.reminders == nil {
		return nil
	}
	r, ok, err := a.reminders.Get(ctx)
	if err != nil {
		return fmt.Errorf("load reminder: %w", err)
	}
	if !ok {
		return nil
	}
	t, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return fmt.Errorf("load reminder: %w", err)
	}
	next := a.scheduler.Arm(t)
	slog.Info("reminder restored", "time", t.String(), "next", next)
	return nil
}

// HandleMessage applies one page command. Applying the same command twice
// leaves the same state.
func (a *App) HandleMessage(ctx context.Context, cmd domain.ReminderCommand) error {
	switch cmd.Type {
	case domain.CommandSetReminder:
		t, err := ParseTimeOfDay(cmd.Time)
		if err != nil {
			return err
		}
		next := a.scheduler.Arm(t)
		slog.Info("reminder armed", "time", t.String(), "next", next, "delay", next.Sub(a.clock.Now()).String())
		if a.reminders != nil {
			if err := a.reminders.Save(ctx, t.String()); err != nil {
				return fmt.Errorf("persist reminder: %w", err)
			}
		}
		return nil
	case domain.CommandClearReminder:
		a.scheduler.Cancel()
		slog.Info("reminder cleared")
		if a.reminders != nil {
			if err := a.reminders.Delete(ctx); err != nil {
				return fmt.Errorf("persist reminder: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

func (a *App) fireReminder() {
	n := NewReminderNotification(a.clock.Now())
	a.mu.Lock()
	a.shown[n.Tag] = n
	a.mu.Unlock()
	remindersFired.Inc()
	if err := a.notifier.Notify(context.Background(), n); err != nil {
		slog.Warn("notification delivery failed", "tag", n.Tag, "err", err)
	}
}

// HandleNotificationClick closes the notification and focuses a window,
// preferring the focused one, or asks for a new window at the root URL.
func (a *App) HandleNotificationClick(_ context.Context, tag string) ClickResult {
	a.mu.Lock()
	delete(a.shown, tag)
	a.mu.Unlock()
	if w, ok := a.clients.focusTarget(); ok {
		return ClickResult{Action: ClickFocus, Window: &w}
	}
	return ClickResult{Action: ClickOpen, URL: a.rootURL}
}

// Notifications returns the notifications not yet dismissed.
func (a *App) Notifications() []domain.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Notification, 0, len(a.shown))
	for _, n := range a.shown {
		out = append(out, n)
	}
	return out
}

func (a *App) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	return a.proxy.Fetch(ctx, req)
}

func (a *App) Clients() *ClientRegistry {
	return a.clients
}

func (a *App) Lifecycle() *Lifecycle {
	return a.lifecycle
}

func (a *App) Scheduler() *Scheduler {
	return a.scheduler
}

// Shutdown stops the reminder timer and waits for background fetches.
// The persisted reminder is kept.
func (a *App) Shutdown() {
	a.scheduler.Cancel()
	a.proxy.Wait()
}
