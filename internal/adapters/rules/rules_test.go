package rules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/platform/logger"
)

func TestForwarderScan(t *testing.T) {
	t.Parallel()

	var got scanRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	f := &Forwarder{endpoint: srv.URL, client: srv.Client(), log: logger.Named("rules")}
	err := f.ScanWithRules(context.Background(), "issue", "PROJ-1", map[string]any{"status": "Done"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got.ObjectType != "issue" || got.ObjectID != "PROJ-1" {
		t.Fatalf("request: %+v", got)
	}
	if got.Data["status"] != "Done" {
		t.Fatalf("data: %v", got.Data)
	}
}

func TestForwarderScanUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	f := &Forwarder{endpoint: srv.URL, client: srv.Client(), log: logger.Named("rules")}
	err := f.ScanWithRules(context.Background(), "issue", "PROJ-1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable code, got %v", err)
	}
}

func TestNoopCounts(t *testing.T) {
	t.Parallel()

	n := NewNoop()
	for range 3 {
		if err := n.ScanWithRules(context.Background(), "issue", "PROJ-2", nil); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}
	if n.Scans() != 3 {
		t.Fatalf("scans: %d", n.Scans())
	}
}
