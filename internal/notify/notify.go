// Package notify sends push alerts for scored earthquakes to every
// registered target.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hejijunhao/aftershock/internal/model"
)

// AlertTitle is the title of every earthquake alert.
const AlertTitle = "Deprem Uyarısı"

// Notification is one push message.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a notification to a single target.
type Sender interface {
	Send(ctx context.Context, token string, n Notification) error
}

// EarthquakeAlert builds the alert for an event and its predicted
// aftershock magnitude.
func EarthquakeAlert(e model.Event, predicted float64) Notification {
	body := fmt.Sprintf("%s bölgesinde %s şiddetinde deprem!\n\nBeklenen ilk artçı şok şiddeti: %s",
		e.ClosestCity, FormatNumber(e.Magnitude), FormatNumber(predicted))
	return Notification{
		Title: AlertTitle,
		Body:  body,
		Data:  map[string]string{"event_id": e.ID},
	}
}

// FormatNumber renders v in its shortest form with at least one decimal
// (6 -> "6.0", 5.55 -> "5.55").
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// Notifier fans a notification out to every registered target.
type Notifier struct {
	registry *Registry
	sender   Sender
}

// New creates a Notifier.
func New(registry *Registry, sender Sender) *Notifier {
	return &Notifier{registry: registry, sender: sender}
}

// NotifyAll sends to every target. A failing or panicking target never
// prevents delivery to the others; all failures are returned joined.
func (n *Notifier) NotifyAll(ctx context.Context, msg Notification) error {
	var errs []error
	for _, token := range n.registry.Tokens() {
		if err := n.send(ctx, token, msg); err != nil {
			slog.Warn("push notification failed", "component", "notify", "target", redact(token), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) send(ctx context.Context, token string, msg Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify: sender panic: %v", r)
		}
	}()
	if err := n.sender.Send(ctx, token, msg); err != nil {
		return fmt.Errorf("notify: target %s: %w", redact(token), err)
	}
	return nil
}

// redact keeps enough of a token to correlate log lines.
func redact(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}

// LogSender logs notifications instead of delivering them. It is used when
// no push credentials are configured.
type LogSender struct{}

// Send logs the notification with the target token redacted.
func (LogSender) Send(_ context.Context, token string, n Notification) error {
	slog.Info("push notification", "component", "notify", "target", redact(token), "title", n.Title, "body", n.Body)
	return nil
}
