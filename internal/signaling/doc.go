// Package signaling implements the WebRTC signaling relay: it groups
// WebSocket connections into named rooms and brokers the join/offer/answer/
// ICE-candidate handshake that lets two browsers establish a direct peer
// connection. No media ever passes through this service.
package signaling
