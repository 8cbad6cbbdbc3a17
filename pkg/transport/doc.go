// Package transport carries RTA frames over a websocket.
//
// The transport layer handles:
//   - dialing the service with the RTA sub-protocol and an XBL3.0
//     Authorization header
//   - serialising writes and bounding them with a deadline
//   - websocket ping/pong for connection liveness
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│     RTA JSON array frames      │
//	├────────────────────────────────┤
//	│ WebSocket (rta.xboxlive.com.V2)│
//	├────────────────────────────────┤
//	│            TLS                 │
//	├────────────────────────────────┤
//	│            TCP                 │
//	└────────────────────────────────┘
//
// # Keep-Alive
//
// Liveness is monitored with websocket ping control frames carrying a
// sequence number:
//   - Ping interval: 30 seconds
//   - Pong timeout: 10 seconds
//   - Max missed pongs: 3
//
// Pong frames are only processed while a goroutine is blocked in
// Conn.Receive, so the owner must keep reading.
package transport
