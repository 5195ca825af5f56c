package signaling

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func mustPanicWith(t *testing.T, wantFragment string, fn func()) {
	t.Helper()
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic")
		}
		msg, ok := rec.(string)
		if !ok || !strings.Contains(msg, wantFragment) {
			t.Fatalf("panic = %v, want fragment %q", rec, wantFragment)
		}
	}()
	fn()
}

func TestUnknownActionPanics(t *testing.T) {
	srv := NewServer(Config{})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mustPanicWith(t, `unhandled action "subscribe"`, func() {
		srv.handleMessage(log, nil, []byte(`{"action":"subscribe","room":"r1","userId":"u1"}`))
	})
}

func TestUnknownRelayTypePanics(t *testing.T) {
	srv := NewServer(Config{})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mustPanicWith(t, `unhandled relay type "renegotiate"`, func() {
		srv.handleMessage(log, nil, []byte(`{"action":"send","room":"r1","userId":"u1","type":"renegotiate"}`))
	})
}
