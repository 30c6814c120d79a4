package message

// Message is an application message: a send mode and a payload held in a Buffer.
type Message struct {
	Mode   SendMode
	Buffer *Buffer
}

// NewMessage creates a message whose payload is a copy of payload, stored in
// a buffer acquired from pool. A nil pool allocates a standalone buffer.
func NewMessage(pool *Pool, mode SendMode, payload []byte) (*Message, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrMessageTooLarge
	}

	var buf *Buffer
	if pool != nil {
		buf = pool.Acquire()
	} else {
		buf = NewBuffer()
	}

	if _, err := buf.Write(payload); err != nil {
		buf.Release()
		return nil, err
	}

	return &Message{Mode: mode, Buffer: buf}, nil
}

// Payload returns the message payload. An empty message has a nil payload.
func (m *Message) Payload() []byte {
	if m.Buffer == nil {
		return nil
	}
	return m.Buffer.Bytes()
}

// Release returns the message buffer to its pool.
func (m *Message) Release() {
	if m.Buffer != nil {
		m.Buffer.Release()
	}
}
