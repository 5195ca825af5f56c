package signaling

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	pionwebrtc "github.com/pion/webrtc/v4"

	"github.com/lexidraw/collab-relay/internal/metrics"
	"github.com/lexidraw/collab-relay/internal/ratelimit"
	"github.com/lexidraw/collab-relay/internal/turnrest"
	"github.com/lexidraw/collab-relay/internal/wsconn"
)

type Config struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Clock drives the per-connection rate limiter. Nil means wall clock.
	Clock clock.Clock

	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	AllowedOrigins []string

	// ICEServers is served to clients via GET /webrtc/ice.
	ICEServers []pionwebrtc.ICEServer

	// TURNCredentials, when set, replaces static TURN credentials in the
	// served ICE config with per-request ephemeral ones.
	TURNCredentials *turnrest.Generator
}

// Server is the WebSocket surface of the signaling relay.
//
// Each connection is handled by its own goroutine; the shared room registry
// is the only cross-connection state and is synchronized internally. An
// unknown action or relay type panics: it marks a client/server protocol
// mismatch that must not be masked by a silent drop.
type Server struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock

	rooms *Rooms

	maxMessageBytes      int64
	maxMessagesPerSecond int

	iceServers []pionwebrtc.ICEServer
	turnCreds  *turnrest.Generator

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
		log:     logger,
		metrics: cfg.Metrics,
		clock:   clk,
		rooms:   NewRooms(),

		maxMessageBytes:      cfg.MaxMessageBytes,
		maxMessagesPerSecond: cfg.MaxMessagesPerSecond,

		iceServers: cfg.ICEServers,
		turnCreds:  cfg.TURNCredentials,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     wsconn.OriginChecker(cfg.AllowedOrigins),
		},
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /signal", s)
	mux.HandleFunc("GET /webrtc/ice", s.handleICEConfig)
}

// RoomCount reports the number of live rooms.
func (s *Server) RoomCount() int {
	return s.rooms.Count()
}

// RoomSize reports the participant count of one room.
func (s *Server) RoomSize(roomID string) int {
	return s.rooms.Size(roomID)
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
		if discarded := s.rooms.DropConn(conn); discarded > 0 {
			s.metrics.Add(metrics.EventRoomDeleted, uint64(discarded))
		}
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

		s.handleMessage(log, conn, data)
	}
}

func (s *Server) handleMessage(log *slog.Logger, conn *wsconn.Conn, data []byte) {
	msg, err := parseSignalMessage(data)
	if err != nil {
		s.metrics.Inc(metrics.EventMessageMalformed)
		log.Warn("dropping malformed signal", "err", err)
		return
	}

	switch msg.Action {
	case actionJoin:
		s.handleJoin(log, conn, msg)
	case actionLeave:
		if s.rooms.Leave(msg.Room, msg.UserID) {
			s.metrics.Inc(metrics.EventRoomDeleted)
		}
		log.Debug("participant left", "room", msg.Room, "user_id", msg.UserID)
	case actionSend:
		// Pure envelope; the relay branch below does the work.
	default:
		panic(fmt.Sprintf("signaling: unhandled action %q", msg.Action))
	}

	if msg.Type == "" {
		return
	}
	switch msg.Type {
	case relayTypeOffer, relayTypeAnswer, relayTypeICECandidate:
		for _, p := range s.rooms.Others(msg.Room, msg.UserID) {
			s.relayTo(log, p, msg)
		}
	case relayTypeInitiateOffer, relayTypeConnection:
		// Relay-internal signals never travel between participants.
		log.Debug("not relaying internal message type", "type", string(msg.Type))
	default:
		panic(fmt.Sprintf("signaling: unhandled relay type %q", msg.Type))
	}
}

func (s *Server) handleJoin(log *slog.Logger, conn *wsconn.Conn, msg signalMessage) {
	if s.rooms.Size(msg.Room) == 0 {
		s.metrics.Inc(metrics.EventRoomCreated)
	}
	first, paired := s.rooms.Join(msg.Room, msg.UserID, conn)
	log.Debug("participant joined",
		"room", msg.Room,
		"user_id", msg.UserID,
		"participants", s.rooms.Size(msg.Room),
	)
	if !paired {
		return
	}

	// The room just paired up: tell the first joiner, and only the first
	// joiner, to create the SDP offer.
	if err := first.conn.WriteJSON(initiateOfferMessage(msg.Room, first.userID)); err != nil {
		s.metrics.Inc(metrics.EventRelaySendFail)
		log.Warn("initiateOffer send failed", "room", msg.Room, "user_id", first.userID, "err", err)
		return
	}
	s.metrics.Inc(metrics.EventInitiateOffer)
}

// relayTo forwards one handshake message to one recipient with the userId
// rewritten to the recipient's id. A failed write affects only that
// recipient.
func (s *Server) relayTo(log *slog.Logger, p participant, msg signalMessage) {
	if err := p.conn.WriteJSON(msg.forRecipient(p.userID)); err != nil {
		s.metrics.Inc(metrics.EventRelaySendFail)
		log.Warn("relay send failed",
			"room", msg.Room,
			"type", string(msg.Type),
			"recipient", p.userID,
			"err", err,
		)
		return
	}
	s.metrics.Inc(metrics.EventRelaySent)
}
