package broadcast

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/lexidraw/collab-relay/internal/metrics"
	"github.com/lexidraw/collab-relay/internal/persist"
	"github.com/lexidraw/collab-relay/internal/ratelimit"
	"github.com/lexidraw/collab-relay/internal/wsconn"
)

// Sink receives the latest snapshot per update message. Enqueue must not
// block message relay; *persist.Coalescer satisfies this.
type Sink interface {
	Enqueue(snap persist.Snapshot)
}

type Config struct {
	Sink Sink

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Clock drives the per-connection rate limiter. Nil means wall clock.
	Clock clock.Clock

	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	AllowedOrigins []string
}

// Server is the WebSocket surface of the broadcast relay.
//
// Each connection is handled by its own goroutine; the shared registry is the
// only cross-connection state and is synchronized internally.
type Server struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	sink    Sink
	clock   clock.Clock

	registry *Registry

	maxMessageBytes      int64
	maxMessagesPerSecond int

	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Server{
		log:      logger,
		metrics:  cfg.Metrics,
		sink:     cfg.Sink,
		clock:    clk,
		registry: NewRegistry(),

		maxMessageBytes:      cfg.MaxMessageBytes,
		maxMessagesPerSecond: cfg.MaxMessagesPerSecond,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     wsconn.OriginChecker(cfg.AllowedOrigins),
		},
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /ws", s)
}

// Connections reports the number of connections with an entity association.
func (s *Server) Connections() int {
	return s.registry.Len()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := wsconn.New(ws)
	defer conn.Close()

	s.metrics.Inc(metrics.EventConnectionOpened)
	log := s.log.With("conn_id", conn.ID(), "remote_addr", conn.RemoteAddr())
	log.Debug("connection opened")

	defer func() {
		s.registry.Remove(conn)
		s.metrics.Inc(metrics.EventConnectionClosed)
		log.Debug("connection closed")
	}()

	if s.maxMessageBytes > 0 {
		conn.SetReadLimit(s.maxMessageBytes)
	}
	limiter := ratelimit.NewTokenBucket(s.clock, int64(s.maxMessagesPerSecond), int64(s.maxMessagesPerSecond))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				s.metrics.Inc(metrics.EventMessageTooLarge)
				log.Warn("closing connection, message too large")
			}
			return
		}
		if msgType != websocket.TextMessage {
			conn.CloseWith(websocket.CloseUnsupportedData, "expected text message")
			return
		}
		if s.maxMessagesPerSecond > 0 && !limiter.Allow(1) {
			s.metrics.Inc(metrics.EventMessageRateLimit)
			conn.CloseWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		s.handleUpdate(log, conn, data)
	}
}

// handleUpdate processes one inbound frame: update the connection's
// association, schedule the coalesced save, then forward the raw frame
// verbatim to every co-editor. The sender never receives its own message back.
func (s *Server) handleUpdate(log *slog.Logger, conn *wsconn.Conn, raw []byte) {
	msg, err := parseUpdateMessage(raw)
	if err != nil {
		// Malformed input is dropped; the connection stays open and no error
		// frame is sent back.
		s.metrics.Inc(metrics.EventMessageMalformed)
		log.Warn("dropping malformed update", "err", err)
		return
	}

	s.registry.Associate(conn, msg.EntityID)
	s.sink.Enqueue(msg.snapshot())

	for _, peer := range s.registry.Peers(msg.EntityID, conn) {
		if err := peer.WriteText(raw); err != nil {
			// One dead receiver must not stop delivery to the rest.
			s.metrics.Inc(metrics.EventBroadcastSendFail)
			log.Warn("broadcast send failed",
				"entity_id", msg.EntityID,
				"peer_id", peer.ID(),
				"err", err,
			)
			continue
		}
		s.metrics.Inc(metrics.EventBroadcastSent)
	}
}
