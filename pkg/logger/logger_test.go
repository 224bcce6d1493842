package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOrgID(ctx, "org-456")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"org_id\"")) {
		t.Fatalf("expected org_id to be preserved; entry=%s", buf.String())
	}
}

func TestLoggerFieldsScopedToContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	scoped := log.WithField(context.Background(), "handler", "webhook")
	log.Info(scoped, "scoped entry")
	log.Info(context.Background(), "plain entry")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %d", len(lines))
	}
	if !bytes.Contains(lines[0], []byte("\"handler\"")) {
		t.Fatalf("expected handler field on scoped entry; entry=%s", lines[0])
	}
	if bytes.Contains(lines[1], []byte("\"handler\"")) {
		t.Fatalf("field leaked to plain entry; entry=%s", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %v", lvl)
	}
	if lvl := ParseLevel("WARN"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}
