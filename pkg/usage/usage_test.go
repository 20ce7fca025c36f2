package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStore_RecordAndTotals(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	entries := []Entry{
		{OwnerFingerprint: "fp-1", Model: "model-a", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		{OwnerFingerprint: "fp-1", Model: "model-a", PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
		{OwnerFingerprint: "fp-2", Model: "model-b", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	totals, err := store.TotalsFor(ctx, "fp-1")
	if err != nil {
		t.Fatalf("TotalsFor: %v", err)
	}
	if totals.Requests != 2 {
		t.Errorf("requests = %d", totals.Requests)
	}
	if totals.PromptTokens != 17 || totals.CompletionTokens != 8 || totals.TotalTokens != 25 {
		t.Errorf("totals = %+v", totals)
	}

	empty, err := store.TotalsFor(ctx, "fp-absent")
	if err != nil {
		t.Fatalf("TotalsFor absent: %v", err)
	}
	if empty.Requests != 0 || empty.TotalTokens != 0 {
		t.Errorf("absent totals = %+v", empty)
	}
}

func TestMetrics_Counters(t *testing.T) {
	metrics := NewMetrics(MetricsConfig{}, prometheus.NewRegistry())

	metrics.RecordRequest("/bedrock/model/converse", "success", 120*time.Millisecond)
	metrics.RecordRequest("/bedrock/model/converse", "success", 80*time.Millisecond)
	metrics.RecordRequest("/chat/completions", "error", 10*time.Millisecond)

	if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("/bedrock/model/converse", "success")); got != 2 {
		t.Errorf("requests_total = %v", got)
	}

	metrics.RecordTokens("model-a", 10, 5)
	metrics.RecordTokens("model-a", 2, 1)

	if got := testutil.ToFloat64(metrics.tokensTotal.WithLabelValues("model-a", "prompt")); got != 12 {
		t.Errorf("prompt tokens = %v", got)
	}
	if got := testutil.ToFloat64(metrics.tokensTotal.WithLabelValues("model-a", "completion")); got != 6 {
		t.Errorf("completion tokens = %v", got)
	}

	metrics.RecordStreamEvent("contentBlockDelta")
	if got := testutil.ToFloat64(metrics.streamEvents.WithLabelValues("contentBlockDelta")); got != 1 {
		t.Errorf("stream events = %v", got)
	}
}

func TestMetrics_ZeroTokensNotRecorded(t *testing.T) {
	metrics := NewMetrics(MetricsConfig{}, prometheus.NewRegistry())
	metrics.RecordTokens("model-a", 0, 0)

	if got := testutil.CollectAndCount(metrics.tokensTotal); got != 0 {
		t.Errorf("token series = %d, want 0", got)
	}
}
