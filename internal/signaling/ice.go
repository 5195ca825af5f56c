package signaling

import (
	"net/http"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/lexidraw/collab-relay/internal/httpserver"
)

type iceConfigResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// handleICEConfig serves the ICE server list clients should hand to their
// RTCPeerConnection. When a TURN REST generator is configured, static TURN
// credentials are replaced with per-request ephemeral ones.
func (s *Server) handleICEConfig(w http.ResponseWriter, r *http.Request) {
	servers := s.iceServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}

	if s.turnCreds != nil {
		creds, err := s.turnCreds.GenerateRandom()
		if err != nil {
			s.log.Error("TURN credential generation failed", "err", err)
			httpserver.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "credential generation failed",
			})
			return
		}
		servers = withTURNCredentials(servers, creds.Username, creds.Credential)
	}

	httpserver.WriteJSON(w, http.StatusOK, iceConfigResponse{ICEServers: servers})
}

// withTURNCredentials copies servers, overwriting the login on every entry
// that carries a turn: or turns: URL. STUN-only entries pass through as-is.
func withTURNCredentials(servers []webrtc.ICEServer, username, credential string) []webrtc.ICEServer {
	if len(servers) == 0 {
		// Keep empty non-nil so the JSON response encodes as [] not null.
		return servers
	}
	out := make([]webrtc.ICEServer, len(servers))
	for i, server := range servers {
		out[i] = server
		if hasTURNURL(server) {
			out[i].Username = username
			out[i].Credential = credential
		}
	}
	return out
}

func hasTURNURL(server webrtc.ICEServer) bool {
	for _, raw := range server.URLs {
		url := strings.ToLower(strings.TrimSpace(raw))
		if strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:") {
			return true
		}
	}
	return false
}
