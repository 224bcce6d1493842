package stripewebhook

import (
	"context"
	"testing"
	"time"
)

type fakeIdempotencyStore struct {
	keys map[string]struct{}
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: map[string]struct{}{}}
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = struct{}{}
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestIdempotencyGuard_DuplicateDetected(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "stripe_webhook")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if seen {
		t.Fatal("first delivery should not be marked as seen")
	}

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !seen {
		t.Fatal("duplicate delivery should be detected")
	}
}

func TestIdempotencyGuard_DeleteAllowsRetry(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "stripe_webhook")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_retry"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_retry"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_retry")
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if seen {
		t.Fatal("released event id should be retryable")
	}
}

func TestIdempotencyGuard_Validation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}

	guard, _ := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "scope")
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
