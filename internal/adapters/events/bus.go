// Package events delivers domain events to downstream consumers.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"aggbridge/internal/platform/config"
	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/platform/logger"
)

// Envelope wraps every published event.
type Envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	EmittedAt int64          `json:"emitted_at"`
	Data      map[string]any `json:"data"`
}

// HTTPBus posts event envelopes as JSON to a single endpoint.
type HTTPBus struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
	now      func() time.Time
}

// NewHTTP builds an HTTPBus from EVENTS_* config.
func NewHTTP(cfg config.Conf) *HTTPBus {
	ev := cfg.Prefix("EVENTS_")
	return &HTTPBus{
		endpoint: ev.MustString("ENDPOINT"),
		client:   &http.Client{Timeout: ev.MayDuration("TIMEOUT", 5*time.Second)},
		log:      logger.Named("events"),
		now:      time.Now,
	}
}

// Emit posts one envelope. A non-2xx response is an emit error.
func (b *HTTPBus) Emit(ctx context.Context, eventType string, data map[string]any) error {
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		EmittedAt: b.now().Unix(),
		Data:      data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return perr.Emitf("marshal %s: %v", eventType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return perr.Emitf("build request for %s: %v", eventType, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return perr.Emitf("post %s: %v", eventType, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return perr.Emitf("post %s: status %d", eventType, resp.StatusCode)
	}
	b.log.Debug().Str("event_id", env.ID).Str("type", eventType).Msg("event delivered")
	return nil
}

// LogBus writes events to the log instead of a transport.
type LogBus struct {
	log *logger.Logger
}

// NewLog builds the fallback bus used when no endpoint is configured.
func NewLog() *LogBus {
	return &LogBus{log: logger.Named("events")}
}

// Emit logs the event and always succeeds.
func (b *LogBus) Emit(_ context.Context, eventType string, data map[string]any) error {
	b.log.Info().
		Str("event_id", uuid.NewString()).
		Str("type", eventType).
		Interface("data", data).
		Msg("event emitted")
	return nil
}
