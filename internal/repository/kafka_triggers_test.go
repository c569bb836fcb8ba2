package repository

import (
	"context"
	"encoding/json"
	"testing"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

type fakeQueue struct {
	types    []string
	payloads []interface{}
	err      error
}

func (f *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.types = append(f.types, msgType)
	f.payloads = append(f.payloads, payload)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func TestTriggerBridgeEnqueues(t *testing.T) {
	q := &fakeQueue{}
	b := NewTriggerBridge("collection-triggers", models.MessageTypeCollection, q, testLogger(t))

	if b.Topic() != "collection-triggers" {
		t.Fatalf("topic = %q", b.Topic())
	}

	trigger := models.NewCollectionTrigger("binance")
	data, err := json.Marshal(trigger)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := b.Handle(context.Background(), data); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(q.types) != 1 || q.types[0] != models.MessageTypeCollection {
		t.Fatalf("enqueued types = %v", q.types)
	}
	payload, ok := q.payloads[0].(map[string]interface{})
	if !ok {
		t.Fatalf("payload type %T", q.payloads[0])
	}
	if payload["exchange"] != "binance" {
		t.Fatalf("payload exchange = %v", payload["exchange"])
	}
}

func TestTriggerBridgeDropsMalformed(t *testing.T) {
	q := &fakeQueue{}
	b := NewTriggerBridge("analysis-triggers", models.MessageTypeAnalysis, q, testLogger(t))

	if err := b.Handle(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("malformed message should be dropped, got: %v", err)
	}
	if len(q.types) != 0 {
		t.Fatalf("malformed message was enqueued")
	}
}

func TestTriggerBridgePropagatesQueueErrors(t *testing.T) {
	q := &fakeQueue{err: context.DeadlineExceeded}
	b := NewTriggerBridge("analysis-triggers", models.MessageTypeAnalysis, q, testLogger(t))

	data, _ := json.Marshal(models.NewAnalysisTrigger(models.AnalysisDaily, "", ""))
	if err := b.Handle(context.Background(), data); err == nil {
		t.Fatal("queue error should propagate for retry")
	}
}
