package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{MaxLimit, MaxLimit},
		{MaxLimit + 50, MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("LimitWithBuffer(10) = %d, want 11", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 3, 4, 12, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("ParseCursor failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cursor, got nil")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: got %+v want %+v", got, want)
	}
}

func TestParseCursor_Empty(t *testing.T) {
	got, err := ParseCursor("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil cursor, got %+v", got)
	}
}

func TestParseCursor_Invalid(t *testing.T) {
	for _, value := range []string{"not-base64!!", "bm90LWEtY3Vyc29y"} {
		if _, err := ParseCursor(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}
