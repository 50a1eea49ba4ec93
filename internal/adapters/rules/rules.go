// Package rules connects issue processing to the tenant automation service.
package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"aggbridge/internal/platform/config"
	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/platform/logger"
)

// scanRequest is the payload sent to the automation service.
type scanRequest struct {
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Data       map[string]any `json:"data"`
}

// Forwarder posts changed objects to the automation service for rule scans.
type Forwarder struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

// NewForwarder builds a Forwarder from RULES_* config.
func NewForwarder(cfg config.Conf) *Forwarder {
	rc := cfg.Prefix("RULES_")
	return &Forwarder{
		endpoint: rc.MustString("ENDPOINT"),
		client:   &http.Client{Timeout: rc.MayDuration("TIMEOUT", 10*time.Second)},
		log:      logger.Named("rules"),
	}
}

// ScanWithRules submits one object for scanning.
func (f *Forwarder) ScanWithRules(ctx context.Context, objectType, objectID string, data map[string]any) error {
	body, err := json.Marshal(scanRequest{ObjectType: objectType, ObjectID: objectID, Data: data})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "marshal rule scan for %s %s", objectType, objectID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return perr.Unavailablef("build rule scan request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return perr.Unavailablef("rule scan %s %s: %v", objectType, objectID, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return perr.Unavailablef("rule scan %s %s: status %d", objectType, objectID, resp.StatusCode)
	}
	f.log.Debug().Str("object_type", objectType).Str("object_id", objectID).Msg("rule scan submitted")
	return nil
}

// Noop records scans locally when no automation service is configured.
type Noop struct {
	log   *logger.Logger
	scans atomic.Int64
}

// NewNoop builds the fallback engine.
func NewNoop() *Noop {
	return &Noop{log: logger.Named("rules")}
}

// ScanWithRules logs the scan and always succeeds.
func (n *Noop) ScanWithRules(_ context.Context, objectType, objectID string, _ map[string]any) error {
	n.scans.Add(1)
	n.log.Debug().Str("object_type", objectType).Str("object_id", objectID).Msg("rule scan skipped, no endpoint")
	return nil
}

// Scans reports how many scans were requested.
func (n *Noop) Scans() int64 { return n.scans.Load() }
