// Package realtime delivers events to users' live websocket sessions.
//
// A user may hold several sessions (tabs, devices). The Registry maps each
// user to the set of sessions that have completed the join handshake, and a
// Broker decides how an event reaches that registry: directly in a single
// process, or through Redis pub/sub when several instances run side by side.
// Delivery is best effort. Nothing is queued for users who are offline.
package realtime

// EventNewMessage is pushed to a receiver when a message is stored.
const EventNewMessage = "newMessage"

const eventJoin = "join"

// Event is the envelope written to the socket.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
