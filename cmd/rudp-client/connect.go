package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/backkem/rudp/pkg/client"
	"github.com/backkem/rudp/pkg/message"
	"github.com/spf13/cobra"
)

func newConnectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <host:port>",
		Short: "Connect to a server and send each stdin line as a reliable message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runConnect(ctx, o, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// session drives one client from a single goroutine.
type session struct {
	client      *client.Client
	out         io.Writer
	maxAttempts int

	pending []string
	done    bool
	err     error
}

func runConnect(ctx context.Context, o *options, address string, in io.Reader, out, errOut io.Writer) error {
	lf, closer, err := o.loggerFactory(errOut)
	if err != nil {
		return err
	}
	defer closer.Close()

	s := &session{out: out, maxAttempts: o.settings.MaxSendAttempts}

	c, err := client.New(o.clientConfig(lf, s.handle))
	if err != nil {
		return err
	}
	defer c.Close()
	s.client = c

	if err := c.Connect(address); err != nil {
		return fmt.Errorf("connect %s: %w", address, err)
	}
	fmt.Fprintf(out, "connecting to %s from %s\n", address, c.LocalAddr())

	lines := readLines(in)

	ticker := time.NewTicker(o.settings.Tick)
	defer ticker.Stop()

	for !s.done {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return nil

		case line, ok := <-lines:
			if !ok {
				// Input ended; finish delivering what was typed, then leave.
				lines = nil
				continue
			}
			s.send(line)

		case <-ticker.C:
			c.Tick()
		}

		if lines == nil && s.flushed() {
			c.Disconnect()
		}
	}

	return s.err
}

// readLines forwards stdin lines until EOF, then closes the channel.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// flushed reports whether every line was sent and acknowledged.
func (s *session) flushed() bool {
	return s.client.IsConnected() && len(s.pending) == 0 && s.client.PendingReliable() == 0
}

// send transmits line reliably, holding it until the handshake completes.
func (s *session) send(line string) {
	if !s.client.IsConnected() {
		s.pending = append(s.pending, line)
		return
	}

	msg, err := s.client.NewMessage(message.SendModeReliable, []byte(line))
	if err != nil {
		fmt.Fprintf(s.out, "send: %v\n", err)
		return
	}
	if err := s.client.Send(msg, s.maxAttempts, message.TransferOwnership); err != nil {
		fmt.Fprintf(s.out, "send: %v\n", err)
	}
}

func (s *session) handle(event client.Event) {
	switch e := event.(type) {
	case client.EventConnected:
		fmt.Fprintf(s.out, "connected as client %d\n", e.ClientID)
		pending := s.pending
		s.pending = nil
		for _, line := range pending {
			s.send(line)
		}

	case client.EventConnectionFailed:
		fmt.Fprintf(s.out, "connection failed: %v\n", e.Err)
		s.done, s.err = true, e.Err

	case client.EventDisconnected:
		fmt.Fprintf(s.out, "disconnected: %s\n", e.Reason)
		s.done = true
		if e.Err != nil && !errors.Is(e.Err, client.ErrLocalDisconnect) {
			s.err = e.Err
		}

	case client.EventMessageReceived:
		fmt.Fprintf(s.out, "< %s\n", e.Payload)

	case client.EventRTTUpdated:
		fmt.Fprintf(s.out, "rtt %v (smoothed %v)\n", e.RTT, e.Smoothed)

	default:
		fmt.Fprintln(s.out, event)
	}
}
