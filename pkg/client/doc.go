// Package client implements the client endpoint of the reliable UDP protocol.
//
// A Client owns one connection at a time:
//
//	c, _ := client.New(client.Config{EventHandler: onEvent})
//	c.Connect("203.0.113.7:7777")
//	for running {
//	    c.Tick()
//	    // ... application frame ...
//	}
//	c.Disconnect()
//	c.Close()
//
// All protocol work happens inside Tick on the caller's goroutine: inbound
// datagrams queued by the receive goroutine are drained in arrival order,
// handshake retries, inactivity timeouts, keepalives and retransmissions
// are checked against the configured Clock, and events are delivered to the
// EventHandler. Tick never blocks on the network.
//
// Client methods must be called from a single goroutine.
package client
