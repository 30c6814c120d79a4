package reliability

import (
	"fmt"
	"time"

	"github.com/backkem/rudp/pkg/clock"
	"github.com/backkem/rudp/pkg/message"
	"github.com/backkem/rudp/pkg/rtt"
	"github.com/backkem/rudp/pkg/sequence"
	"github.com/pion/logging"
)

// Sender transmits one encoded datagram to the peer.
type Sender func(datagram []byte) error

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Send transmits datagrams. Required.
	Send Sender

	// Clock is the time source. Defaults to clock.Real.
	Clock clock.Clock

	// InitialRetryInterval is the base retry interval while RTT is unknown.
	InitialRetryInterval time.Duration

	// MinRetryInterval and MaxRetryInterval bound the retry interval.
	MinRetryInterval time.Duration
	MaxRetryInterval time.Duration

	// StandaloneAckDelay is how long an owed ack waits for a piggyback
	// opportunity before FlushAcks sends it standalone. 0 sends it on the
	// next flush.
	StandaloneAckDelay time.Duration

	// DefaultMaxSendAttempts applies when SendReliable gets 0 attempts.
	DefaultMaxSendAttempts int

	// RandomSource supplies backoff jitter.
	RandomSource RandomSource

	// RTTHistorySize is the number of RTT samples kept for statistics.
	RTTHistorySize int

	// Counter allocates outbound sequence numbers.
	// If nil, a counter with a random start is used.
	Counter *sequence.Counter

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

func (c *EngineConfig) applyDefaults() {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.DefaultMaxSendAttempts <= 0 {
		c.DefaultMaxSendAttempts = DefaultMaxSendAttempts
	}
	if c.StandaloneAckDelay < 0 {
		c.StandaloneAckDelay = 0
	}
	if c.Counter == nil {
		c.Counter = sequence.NewCounter()
	}
}

// AckResult describes the effect of one inbound acknowledgement.
type AckResult struct {
	// Acked is the number of pending sends the acknowledgement confirmed.
	Acked int

	// Sampled is true if at least one RTT sample was applied.
	Sampled bool
}

// Engine provides reliable delivery for one connection.
//
// It assigns sequence numbers, tracks pending reliable sends until they are
// acknowledged or exhausted, deduplicates inbound sequenced messages, and
// produces acknowledgements, piggybacked on outgoing datagrams when possible.
// All work is driven by calls from the tick loop; the engine runs no
// goroutines and takes no locks.
type Engine struct {
	config    EngineConfig
	clock     clock.Clock
	send      Sender
	log       logging.LeveledLogger
	counter   *sequence.Counter
	window    *sequence.Window
	table     *RetransmitTable
	acks      *AckState
	backoff   *Backoff
	estimator *rtt.Estimator
}

// NewEngine creates an engine.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Send == nil {
		return nil, ErrNoSender
	}
	config.applyDefaults()

	e := &Engine{
		config:  config,
		clock:   config.Clock,
		send:    config.Send,
		counter: config.Counter,
		window:  sequence.NewWindow(),
		table:   NewRetransmitTable(MaxInFlight),
		acks:    NewAckState(),
		backoff: NewBackoff(
			config.InitialRetryInterval,
			config.MinRetryInterval,
			config.MaxRetryInterval,
			config.RandomSource,
		),
		estimator: rtt.NewEstimator(config.RTTHistorySize),
	}

	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("reliability")
	}

	return e, nil
}

// SendReliable sends payload as a sequenced message and tracks it until
// acknowledged. maxAttempts of 0 selects the configured default.
// release, if non-nil, runs once when the entry is acknowledged, exhausted
// or discarded. On error nothing is tracked and release is not called.
func (e *Engine) SendReliable(payload []byte, maxAttempts int, release func()) (sequence.Seq, error) {
	if len(payload) > message.MaxPayloadSize {
		return 0, message.ErrMessageTooLarge
	}
	if e.table.Full() {
		return 0, ErrSendWindowFull
	}
	if maxAttempts <= 0 {
		maxAttempts = e.config.DefaultMaxSendAttempts
	}

	seq := e.counter.Next()
	frame := message.Frame{
		Header:  message.Header{Type: message.TypeReliable, Sequence: seq},
		Payload: payload,
	}
	e.attachAck(&frame.Header)

	datagram, err := frame.Encode()
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	entry := &RetransmitEntry{
		Sequence:    seq,
		Datagram:    datagram,
		Attempts:    1,
		MaxAttempts: maxAttempts,
		LastSend:    now,
		Deadline:    now.Add(e.timeout(1)),
		release:     release,
	}
	if err := e.table.Add(entry); err != nil {
		return 0, err
	}

	if e.log != nil {
		e.log.Debugf("send reliable seq=%d len=%d max=%d", seq, len(payload), maxAttempts)
	}
	e.transmit(datagram)

	return seq, nil
}

// SendUnreliable sends a datagram of the given type with no tracking.
// An owed ack is piggybacked unless the type is a handshake request.
func (e *Engine) SendUnreliable(typ message.MessageType, payload []byte) error {
	frame := message.Frame{
		Header:  message.Header{Type: typ},
		Payload: payload,
	}
	if frame.Size()+message.AckSize > message.MaxDatagramSize {
		return message.ErrMessageTooLarge
	}
	if typ != message.TypeHandshakeRequest {
		e.attachAck(&frame.Header)
	}

	datagram, err := frame.Encode()
	if err != nil {
		return err
	}

	return e.transmit(datagram)
}

// attachAck piggybacks the owed window ack onto h.
func (e *Engine) attachAck(h *message.Header) {
	if !e.acks.Pending() {
		return
	}
	latest, bits, ok := e.window.Ack()
	if !ok {
		return
	}
	h.HasAck = true
	h.AckSequence = latest
	h.AckBits = bits
	e.acks.Piggybacked()
}

// Receive checks an inbound sequenced message against the receive window
// and schedules its acknowledgement. Returns true if the message is new and
// should be delivered. Duplicates are re-acknowledged but not delivered;
// messages older than the window are neither delivered nor acknowledged.
func (e *Engine) Receive(seq sequence.Seq) bool {
	now := e.clock.Now()

	switch e.window.Accept(seq) {
	case sequence.VerdictNew:
		e.acks.Mark(now)
		if ackSeq, _ := e.window.AckFor(seq); ackSeq != e.window.Latest() {
			// Beyond the ack bitfield: the window ack cannot name it.
			e.acks.MarkExplicit(seq)
		}
		return true

	case sequence.VerdictDuplicate:
		if ackSeq, _ := e.window.AckFor(seq); ackSeq == e.window.Latest() {
			e.acks.Mark(now)
		} else {
			e.acks.MarkExplicit(seq)
		}
		if e.log != nil {
			e.log.Debugf("duplicate seq=%d re-acknowledged", seq)
		}
		return false

	default:
		if e.log != nil {
			e.log.Debugf("stale seq=%d discarded", seq)
		}
		return false
	}
}

// HandleAck applies an acknowledgement: every pending send it confirms is
// removed, released, and contributes an RTT sample.
func (e *Engine) HandleAck(ackSeq sequence.Seq, ackBits uint32) AckResult {
	var result AckResult
	now := e.clock.Now()

	for _, seq := range sequence.Confirmed(ackSeq, ackBits) {
		entry := e.table.Ack(seq)
		if entry == nil {
			continue
		}
		result.Acked++
		if e.estimator.Sample(now.Sub(entry.LastSend)) {
			result.Sampled = true
		}
		entry.Release()
	}

	if result.Acked > 0 && e.log != nil {
		e.log.Debugf("ack seq=%d bits=%#x confirmed %d, pending %d",
			ackSeq, ackBits, result.Acked, e.table.Count())
	}

	return result
}

// Poll resends every pending message whose retransmission timeout expired.
// A message that already used all its attempts is removed and Poll returns
// an error wrapping ErrDeliveryFailed; remaining entries are left for the
// caller to Discard.
func (e *Engine) Poll() error {
	now := e.clock.Now()

	for _, entry := range e.table.Due(now) {
		if entry.Exhausted() {
			e.table.Remove(entry.Sequence)
			entry.Release()
			if e.log != nil {
				e.log.Warnf("seq=%d unacknowledged after %d attempts", entry.Sequence, entry.Attempts)
			}
			return fmt.Errorf("%w: sequence %d unacknowledged after %d attempts",
				ErrDeliveryFailed, entry.Sequence, entry.Attempts)
		}

		entry.Attempts++
		entry.LastSend = now
		entry.Deadline = now.Add(e.timeout(entry.Attempts))

		if e.log != nil {
			e.log.Debugf("retransmit seq=%d attempt %d/%d", entry.Sequence, entry.Attempts, entry.MaxAttempts)
		}
		e.transmit(entry.Datagram)
	}

	return nil
}

// FlushAcks sends owed acknowledgements that could not be piggybacked.
func (e *Engine) FlushAcks() {
	for _, seq := range e.acks.TakeExplicit() {
		e.sendAck(seq, 0)
	}

	if !e.acks.StandaloneDue(e.clock.Now(), e.config.StandaloneAckDelay) {
		return
	}
	if latest, bits, ok := e.window.Ack(); ok {
		e.sendAck(latest, bits)
	}
	e.acks.StandaloneSent()
}

func (e *Engine) sendAck(ackSeq sequence.Seq, ackBits uint32) {
	h := message.Header{
		Type:        message.TypeAck,
		HasAck:      true,
		AckSequence: ackSeq,
		AckBits:     ackBits,
	}
	e.transmit(h.Encode())
}

// NextDeadline returns the earliest retransmission deadline.
// ok is false when nothing is pending.
func (e *Engine) NextDeadline() (deadline time.Time, ok bool) {
	for _, entry := range e.table.order {
		if !ok || entry.Deadline.Before(deadline) {
			deadline = entry.Deadline
			ok = true
		}
	}
	return deadline, ok
}

// ObserveRTT feeds an RTT sample measured outside the ack path, such as a
// keepalive echo. Returns false if the sample was discarded.
func (e *Engine) ObserveRTT(d time.Duration) bool {
	return e.estimator.Sample(d)
}

// Discard drops all pending sends, releasing their buffers, and any owed acks.
func (e *Engine) Discard() {
	if e.log != nil && e.table.Count() > 0 {
		e.log.Debugf("discarding %d pending reliable sends", e.table.Count())
	}
	e.table.Clear()
	e.acks.Clear()
}

// Pending returns the number of reliable sends awaiting acknowledgement.
func (e *Engine) Pending() int {
	return e.table.Count()
}

// RTT returns the latest RTT sample, or rtt.Unknown.
func (e *Engine) RTT() time.Duration {
	return e.estimator.RTT()
}

// SmoothedRTT returns the smoothed RTT, or rtt.Unknown.
func (e *Engine) SmoothedRTT() time.Duration {
	return e.estimator.Smoothed()
}

// RTTStats returns statistics over recent RTT samples.
func (e *Engine) RTTStats() rtt.Stats {
	return e.estimator.Stats()
}

func (e *Engine) timeout(attempts int) time.Duration {
	base := e.backoff.BaseInterval(e.estimator.Smoothed())
	return e.backoff.Calculate(base, attempts-1)
}

func (e *Engine) transmit(datagram []byte) error {
	if err := e.send(datagram); err != nil {
		if e.log != nil {
			e.log.Warnf("send failed: %v", err)
		}
		return err
	}
	return nil
}
