package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type document struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := document{Name: "board", Count: 8, Timestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	if err := s.SetJSON(ctx, "signals:active", in); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var out document
	if err := s.GetJSON(ctx, "signals:active", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()

	var out document
	err := s.GetJSON(context.Background(), "missing", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SetJSON(ctx, "k", document{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	var out document
	if err := s.GetJSON(ctx, "k", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent key is a no-op.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}
