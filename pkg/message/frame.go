package message

// Frame is a complete datagram: header plus opaque payload.
type Frame struct {
	Header  Header
	Payload []byte
}

// Size returns the encoded size of the frame in bytes.
func (f *Frame) Size() int {
	return f.Header.Size() + len(f.Payload)
}

// Encode serializes the frame into a new slice.
// Returns ErrMessageTooLarge if the frame exceeds MaxDatagramSize.
func (f *Frame) Encode() ([]byte, error) {
	size := f.Size()
	if size > MaxDatagramSize {
		return nil, ErrMessageTooLarge
	}

	buf := make([]byte, size)
	offset := f.Header.EncodeTo(buf)
	copy(buf[offset:], f.Payload)

	return buf, nil
}

// EncodeTo serializes the frame into buf.
// Returns the number of bytes written.
func (f *Frame) EncodeTo(buf []byte) (int, error) {
	size := f.Size()
	if size > MaxDatagramSize {
		return 0, ErrMessageTooLarge
	}
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}

	offset := f.Header.EncodeTo(buf)
	offset += copy(buf[offset:], f.Payload)

	return offset, nil
}

// DecodeFrame decodes a datagram.
// The returned Payload aliases data; copy it if data will be reused.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) > MaxDatagramSize {
		return nil, ErrMessageTooLarge
	}

	f := &Frame{}

	headerLen, err := f.Header.Decode(data)
	if err != nil {
		return nil, err
	}

	if len(data) > headerLen {
		f.Payload = data[headerLen:]
	}

	return f, nil
}

// ValidateSize checks if a datagram is within the size limit.
func ValidateSize(data []byte) error {
	if len(data) > MaxDatagramSize {
		return ErrMessageTooLarge
	}
	return nil
}
