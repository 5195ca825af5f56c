package config

import (
	"log/slog"
	"testing"
	"time"
)

func lookupFromMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(ServiceBroadcast, lookupFromMap(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != DefaultBroadcastListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultBroadcastListenAddr)
	}
	if cfg.MaxMessageBytes != DefaultBroadcastMaxMessageBytes {
		t.Errorf("MaxMessageBytes = %d, want %d", cfg.MaxMessageBytes, DefaultBroadcastMaxMessageBytes)
	}
	if cfg.SaveDebounce != DefaultSaveDebounce {
		t.Errorf("SaveDebounce = %s, want %s", cfg.SaveDebounce, DefaultSaveDebounce)
	}
	if cfg.Mode != ModeDev {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeDev)
	}
	// dev defaults to text/debug
	if cfg.LogFormat != LogFormatText || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("log defaults = %q/%v, want text/debug", cfg.LogFormat, cfg.LogLevel)
	}
}

func TestLoad_SignalingDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(ServiceSignaling, lookupFromMap(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != DefaultSignalingListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultSignalingListenAddr)
	}
	if cfg.MaxMessageBytes != DefaultSignalingMaxMessageBytes {
		t.Errorf("MaxMessageBytes = %d, want %d", cfg.MaxMessageBytes, DefaultSignalingMaxMessageBytes)
	}
}

func TestLoad_ProdModeDefaultsJSONInfo(t *testing.T) {
	t.Parallel()

	env := map[string]string{envVarMode: "prod"}
	cfg, err := load(ServiceBroadcast, lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("prod log defaults = %q/%v, want json/info", cfg.LogFormat, cfg.LogLevel)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		envVarListenAddr:   ":9999",
		envVarSaveDebounce: "5s",
	}
	cfg, err := load(ServiceBroadcast, lookupFromMap(env), []string{"-listen", ":7777"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q, want flag value :7777", cfg.ListenAddr)
	}
	if cfg.SaveDebounce != 5*time.Second {
		t.Errorf("SaveDebounce = %s, want env value 5s", cfg.SaveDebounce)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		{"-mode", "staging"},
		{"-log-format", "xml"},
		{"-log-level", "loud"},
		{"-max-message-bytes", "0"},
		{"-max-messages-per-second", "-1"},
		{"-save-debounce", "0s"},
	}
	for _, args := range cases {
		if _, err := load(ServiceBroadcast, lookupFromMap(nil), args); err == nil {
			t.Errorf("load(%v): expected error", args)
		}
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Parallel()

	env := map[string]string{envVarAllowedOrigins: "https://draw.example.com, https://docs.example.com"}
	cfg, err := load(ServiceBroadcast, lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://docs.example.com" {
		t.Errorf("AllowedOrigins = %#v", cfg.AllowedOrigins)
	}
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	for _, format := range []LogFormat{LogFormatText, LogFormatJSON} {
		logger, err := NewLogger(Config{LogFormat: format, LogLevel: slog.LevelInfo})
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", format, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%q): nil logger", format)
		}
	}

	if _, err := NewLogger(Config{LogFormat: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
