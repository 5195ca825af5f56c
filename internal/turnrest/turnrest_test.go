package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestGenerator(t *testing.T, clk clock.Clock) *Generator {
	t.Helper()
	gen, err := NewGenerator(GeneratorConfig{
		SharedSecret:   "north-remembers",
		TTLSeconds:     600,
		UsernamePrefix: "collab",
		Clock:          clk,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return gen
}

func TestGenerateCoturnCompatible(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	gen := newTestGenerator(t, clk)

	creds, err := gen.Generate("session-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	wantExpiry := clk.Now().UTC().Unix() + 600
	if creds.ExpiryUnix != wantExpiry {
		t.Fatalf("expiry = %d, want %d", creds.ExpiryUnix, wantExpiry)
	}
	wantUsername := "1717243800:collab:session-1"
	if creds.Username != wantUsername {
		t.Fatalf("username = %q, want %q", creds.Username, wantUsername)
	}

	mac := hmac.New(sha1.New, []byte("north-remembers"))
	mac.Write([]byte(creds.Username))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if creds.Credential != want {
		t.Fatalf("credential = %q, want %q", creds.Credential, want)
	}
}

func TestGenerateValidation(t *testing.T) {
	gen := newTestGenerator(t, clock.NewMock())

	if _, err := gen.Generate(""); err == nil {
		t.Fatal("expected error for empty session id")
	}
	if _, err := gen.Generate("a:b"); err == nil {
		t.Fatal("expected error for session id containing ':'")
	}
}

func TestGenerateRandomSessionIDs(t *testing.T) {
	gen := newTestGenerator(t, clock.NewMock())

	a, err := gen.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	b, err := gen.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	if a.Username == b.Username {
		t.Fatal("expected distinct usernames from random session ids")
	}
	if got := strings.Count(a.Username, ":"); got != 2 {
		t.Fatalf("username %q has %d colons, want 2", a.Username, got)
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  GeneratorConfig
	}{
		{"missing secret", GeneratorConfig{TTLSeconds: 600, UsernamePrefix: "collab"}},
		{"zero ttl", GeneratorConfig{SharedSecret: "s", UsernamePrefix: "collab"}},
		{"missing prefix", GeneratorConfig{SharedSecret: "s", TTLSeconds: 600}},
		{"colon in prefix", GeneratorConfig{SharedSecret: "s", TTLSeconds: 600, UsernamePrefix: "a:b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewGenerator(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
