package client

import (
	"fmt"
	"time"

	"github.com/backkem/rudp/pkg/connection"
	"github.com/backkem/rudp/pkg/message"
)

// Event is a notification delivered to the EventHandler during Tick.
// The concrete type is one of the Event* structs in this package.
type Event interface {
	fmt.Stringer
	isEvent()
}

// EventHandler receives events on the goroutine that calls Tick.
// It may call Send, Disconnect and Connect.
type EventHandler func(Event)

// EventConnected is raised once when the handshake completes.
type EventConnected struct {
	ClientID uint16
}

// EventConnectionFailed is raised when a connection attempt ends before
// the handshake completes, either because the address was invalid or
// because no handshake response arrived.
type EventConnectionFailed struct {
	Err error
}

// EventMessageReceived carries an application message.
// Payload aliases a receive buffer and is only valid during the handler
// call; copy it to keep it.
type EventMessageReceived struct {
	Type    message.MessageType
	Payload []byte
}

// EventRTTUpdated is raised after each accepted RTT sample.
type EventRTTUpdated struct {
	RTT      time.Duration
	Smoothed time.Duration
}

// EventDisconnected is raised once when an established or in-progress
// connection ends for any reason other than a failed handshake.
type EventDisconnected struct {
	Reason connection.Reason
	Err    error
}

// EventClientConnected reports that another client joined the server.
type EventClientConnected struct {
	ClientID uint16
}

// EventClientDisconnected reports that another client left the server.
type EventClientDisconnected struct {
	ClientID uint16
}

func (EventConnected) isEvent()          {}
func (EventConnectionFailed) isEvent()   {}
func (EventMessageReceived) isEvent()    {}
func (EventRTTUpdated) isEvent()         {}
func (EventDisconnected) isEvent()       {}
func (EventClientConnected) isEvent()    {}
func (EventClientDisconnected) isEvent() {}

func (e EventConnected) String() string {
	return fmt.Sprintf("Connected(id=%d)", e.ClientID)
}

func (e EventConnectionFailed) String() string {
	return fmt.Sprintf("ConnectionFailed(%v)", e.Err)
}

func (e EventMessageReceived) String() string {
	return fmt.Sprintf("MessageReceived(%s, %d bytes)", e.Type, len(e.Payload))
}

func (e EventRTTUpdated) String() string {
	return fmt.Sprintf("RTTUpdated(rtt=%v, smoothed=%v)", e.RTT, e.Smoothed)
}

func (e EventDisconnected) String() string {
	return fmt.Sprintf("Disconnected(%s)", e.Reason)
}

func (e EventClientConnected) String() string {
	return fmt.Sprintf("ClientConnected(id=%d)", e.ClientID)
}

func (e EventClientDisconnected) String() string {
	return fmt.Sprintf("ClientDisconnected(id=%d)", e.ClientID)
}

// pendingEvent is an event queued for dispatch, with an optional release
// run after the handler returns.
type pendingEvent struct {
	event   Event
	release func()
}
