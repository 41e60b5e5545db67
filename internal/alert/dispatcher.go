package alert

import (
	"context"
	"fmt"
	"log/slog"

	"breachwatch/internal/config"
	"breachwatch/internal/logging"
	"breachwatch/internal/metrics"
	"breachwatch/internal/provider"
	"breachwatch/internal/redact"
)

// Dispatcher delivers events to every enabled channel.
type Dispatcher struct {
	channels []Channel
	log      *slog.Logger
}

// NewDispatcher builds a dispatcher over already-enabled channels.
func NewDispatcher(log *slog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, log: logging.OrDiscard(log)}
}

// FromConfig registers the channels switched on in cfg. Disabled channels are
// left out entirely.
func FromConfig(cfg config.AlertsConfig, client *provider.HTTPClient, log *slog.Logger) *Dispatcher {
	var channels []Channel
	if cfg.Email.Enabled {
		channels = append(channels, NewEmail(cfg.Email))
	}
	if cfg.Telegram.Enabled {
		channels = append(channels, NewTelegram(cfg.Telegram, client))
	}
	if cfg.Slack.Enabled {
		channels = append(channels, NewSlack(cfg.Slack, client))
	}
	return NewDispatcher(log, channels...)
}

// Channels returns the names of the enabled channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch attempts every channel and reports whether all of them succeeded.
// With no channels enabled it returns true.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) bool {
	msg := Render(e)
	ok := true
	for _, ch := range d.channels {
		if err := d.send(ctx, ch, msg); err != nil {
			ok = false
			metrics.AlertDeliveries.WithLabelValues(ch.Name(), "failure").Inc()
			d.log.Error("alert delivery failed",
				"channel", ch.Name(),
				"type", e.Type,
				"alert_id", msg.ID,
				"err", redact.Scrub(err.Error()),
			)
			continue
		}
		metrics.AlertDeliveries.WithLabelValues(ch.Name(), "success").Inc()
		d.log.Info("alert delivered", "channel", ch.Name(), "type", e.Type, "alert_id", msg.ID)
	}
	return ok
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", ch.Name(), r)
		}
	}()
	return ch.Send(ctx, msg)
}
