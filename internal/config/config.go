package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	envVarMode       = "COLLAB_RELAY_MODE"
	envVarLogFormat  = "COLLAB_RELAY_LOG_FORMAT"
	envVarLogLevel   = "COLLAB_RELAY_LOG_LEVEL"
	envVarListenAddr = "COLLAB_RELAY_LISTEN_ADDR"

	envVarShutdownTimeout      = "COLLAB_RELAY_SHUTDOWN_TIMEOUT"
	envVarAllowedOrigins       = "COLLAB_RELAY_ALLOWED_ORIGINS"
	envVarMaxMessageBytes      = "COLLAB_RELAY_MAX_MESSAGE_BYTES"
	envVarMaxMessagesPerSecond = "COLLAB_RELAY_MAX_MESSAGES_PER_SECOND"

	envVarSaveURL      = "COLLAB_RELAY_SAVE_URL"
	envVarSaveToken    = "COLLAB_RELAY_SAVE_TOKEN"
	envVarSaveDebounce = "COLLAB_RELAY_SAVE_DEBOUNCE"
	envVarSaveTimeout  = "COLLAB_RELAY_SAVE_TIMEOUT"

	envVarTURNRESTSharedSecret   = "COLLAB_RELAY_TURN_REST_SHARED_SECRET"
	envVarTURNRESTTTLSeconds     = "COLLAB_RELAY_TURN_REST_TTL_SECONDS"
	envVarTURNRESTUsernamePrefix = "COLLAB_RELAY_TURN_REST_USERNAME_PREFIX"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"

	DefaultMode = ModeDev
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Service selects per-binary defaults (listen port, message size cap).
type Service string

const (
	ServiceBroadcast Service = "broadcast-relay"
	ServiceSignaling Service = "signaling-relay"
)

const (
	DefaultBroadcastListenAddr = ":8080"
	DefaultSignalingListenAddr = ":8081"

	// Drawing element trees routinely reach hundreds of kilobytes; signaling
	// frames are a handful of SDP/candidate strings.
	DefaultBroadcastMaxMessageBytes = 4 << 20
	DefaultSignalingMaxMessageBytes = 64 << 10

	DefaultMaxMessagesPerSecond = 100
	DefaultShutdownTimeout      = 10 * time.Second

	DefaultSaveDebounce = 1000 * time.Millisecond
	DefaultSaveTimeout  = 10 * time.Second

	DefaultTURNRESTTTLSeconds     = int64(600)
	DefaultTURNRESTUsernamePrefix = "collab"
)

type Config struct {
	Service Service

	Mode      Mode
	LogFormat LogFormat
	LogLevel  slog.Level

	ListenAddr      string
	ShutdownTimeout time.Duration

	// AllowedOrigins restricts WebSocket upgrades by Origin header.
	// Empty means any origin is accepted.
	AllowedOrigins []string

	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	// Broadcast relay: coalesced persistence sink.
	SaveURL      string
	SaveToken    string
	SaveDebounce time.Duration
	SaveTimeout  time.Duration

	// Signaling relay: ICE servers handed to clients via /webrtc/ice.
	ICEServers []webrtc.ICEServer

	// When set, TURN entries in ICEServers are served with ephemeral
	// coturn-style REST credentials instead of their static ones.
	TURNRESTSharedSecret   string
	TURNRESTTTLSeconds     int64
	TURNRESTUsernamePrefix string
}

func Load(service Service, args []string) (Config, error) {
	return load(service, os.LookupEnv, args)
}

func load(service Service, lookup func(string) (string, bool), args []string) (Config, error) {
	listenDefault := DefaultBroadcastListenAddr
	maxMessageBytesDefault := int64(DefaultBroadcastMaxMessageBytes)
	if service == ServiceSignaling {
		listenDefault = DefaultSignalingListenAddr
		maxMessageBytesDefault = DefaultSignalingMaxMessageBytes
	}

	envMode := envOrDefault(lookup, envVarMode, string(DefaultMode))

	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	saveDebounce, err := envDurationOrDefault(lookup, envVarSaveDebounce, DefaultSaveDebounce)
	if err != nil {
		return Config{}, err
	}
	saveTimeout, err := envDurationOrDefault(lookup, envVarSaveTimeout, DefaultSaveTimeout)
	if err != nil {
		return Config{}, err
	}
	maxMessageBytes, err := envInt64OrDefault(lookup, envVarMaxMessageBytes, maxMessageBytesDefault)
	if err != nil {
		return Config{}, err
	}
	maxMessagesPerSecond, err := envIntOrDefault(lookup, envVarMaxMessagesPerSecond, DefaultMaxMessagesPerSecond)
	if err != nil {
		return Config{}, err
	}
	turnRESTTTLSeconds, err := envInt64OrDefault(lookup, envVarTURNRESTTTLSeconds, DefaultTURNRESTTTLSeconds)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet(string(service), flag.ContinueOnError)
	mode := fs.String("mode", envMode, "run mode: dev or prod (env "+envVarMode+")")
	logFormatStr := fs.String("log-format", envOrDefault(lookup, envVarLogFormat, ""), "log format: text or json; defaults by mode (env "+envVarLogFormat+")")
	logLevelStr := fs.String("log-level", envOrDefault(lookup, envVarLogLevel, ""), "log level: debug, info, warn or error; defaults by mode (env "+envVarLogLevel+")")
	listenAddr := fs.String("listen", envOrDefault(lookup, envVarListenAddr, listenDefault), "listen address (env "+envVarListenAddr+")")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "graceful shutdown timeout (env "+envVarShutdownTimeout+")")
	allowedOriginsStr := fs.String("allowed-origins", envOrDefault(lookup, envVarAllowedOrigins, ""), "comma-separated WebSocket origins; empty allows any (env "+envVarAllowedOrigins+")")
	fs.Int64Var(&maxMessageBytes, "max-message-bytes", maxMessageBytes, "maximum inbound WebSocket message size (env "+envVarMaxMessageBytes+")")
	fs.IntVar(&maxMessagesPerSecond, "max-messages-per-second", maxMessagesPerSecond, "per-connection inbound message rate limit (env "+envVarMaxMessagesPerSecond+")")

	saveURL := fs.String("save-url", envOrDefault(lookup, envVarSaveURL, ""), "persistence endpoint for coalesced snapshots; empty logs snapshots instead (env "+envVarSaveURL+")")
	saveToken := fs.String("save-token", envOrDefault(lookup, envVarSaveToken, ""), "bearer token for the persistence endpoint (env "+envVarSaveToken+")")
	fs.DurationVar(&saveDebounce, "save-debounce", saveDebounce, "quiescence window before a pending snapshot is written (env "+envVarSaveDebounce+")")
	fs.DurationVar(&saveTimeout, "save-timeout", saveTimeout, "timeout for a single persistence call (env "+envVarSaveTimeout+")")

	iceServersJSON := fs.String("ice-servers-json", envOrDefault(lookup, envICEServersJSON, ""), "ICE servers as a JSON array (env "+envICEServersJSON+")")
	stunURLs := fs.String("stun-urls", envOrDefault(lookup, envStunURLs, ""), "comma-separated STUN urls (env "+envStunURLs+")")
	turnURLs := fs.String("turn-urls", envOrDefault(lookup, envTurnURLs, ""), "comma-separated TURN urls (env "+envTurnURLs+")")
	turnUsername := fs.String("turn-username", envOrDefault(lookup, envTurnUsername, ""), "static TURN username (env "+envTurnUsername+")")
	turnCredential := fs.String("turn-credential", envOrDefault(lookup, envTurnCredential, ""), "static TURN credential (env "+envTurnCredential+")")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *mode != string(ModeDev) && *mode != string(ModeProd) {
		return Config{}, fmt.Errorf("invalid mode %q (want dev or prod)", *mode)
	}
	if *logFormatStr == "" {
		*logFormatStr = defaultLogFormatForMode(*mode)
	}
	if *logLevelStr == "" {
		*logLevelStr = defaultLogLevelForMode(*mode)
	}
	logFormat, err := parseLogFormat(*logFormatStr)
	if err != nil {
		return Config{}, err
	}
	logLevel, err := parseLogLevel(*logLevelStr)
	if err != nil {
		return Config{}, err
	}

	if maxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("max-message-bytes must be > 0, got %d", maxMessageBytes)
	}
	if maxMessagesPerSecond <= 0 {
		return Config{}, fmt.Errorf("max-messages-per-second must be > 0, got %d", maxMessagesPerSecond)
	}
	if saveDebounce <= 0 {
		return Config{}, fmt.Errorf("save-debounce must be > 0, got %s", saveDebounce)
	}

	iceServers, err := parseICEServersFromValues(*iceServersJSON, *stunURLs, *turnURLs, *turnUsername, *turnCredential)
	if err != nil {
		return Config{}, err
	}

	turnRESTSharedSecret := envOrDefault(lookup, envVarTURNRESTSharedSecret, "")
	turnRESTUsernamePrefix := envOrDefault(lookup, envVarTURNRESTUsernamePrefix, DefaultTURNRESTUsernamePrefix)

	return Config{
		Service: service,

		Mode:      Mode(*mode),
		LogFormat: logFormat,
		LogLevel:  logLevel,

		ListenAddr:      *listenAddr,
		ShutdownTimeout: shutdownTimeout,

		AllowedOrigins: splitCommaSeparated(*allowedOriginsStr),

		MaxMessageBytes:      maxMessageBytes,
		MaxMessagesPerSecond: maxMessagesPerSecond,

		SaveURL:      *saveURL,
		SaveToken:    *saveToken,
		SaveDebounce: saveDebounce,
		SaveTimeout:  saveTimeout,

		ICEServers: iceServers,

		TURNRESTSharedSecret:   turnRESTSharedSecret,
		TURNRESTTTLSeconds:     turnRESTTTLSeconds,
		TURNRESTUsernamePrefix: turnRESTUsernamePrefix,
	}, nil
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (want text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", raw)
	}
}

func defaultLogFormatForMode(mode string) string {
	if mode == string(ModeProd) {
		return "json"
	}
	return "text"
}

func defaultLogLevelForMode(mode string) string {
	if mode == string(ModeProd) {
		return "info"
	}
	return "debug"
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envInt64OrDefault(lookup func(string) (string, bool), key string, fallback int64) (int64, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
