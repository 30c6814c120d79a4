package message

import (
	"bytes"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{
			name:  "Empty unreliable",
			frame: Frame{Header: Header{Type: TypeUnreliable}},
		},
		{
			name: "Reliable with payload",
			frame: Frame{
				Header:  Header{Type: TypeReliable, Sequence: 65535},
				Payload: []byte("hello"),
			},
		},
		{
			name: "Handshake request nonce",
			frame: Frame{
				Header:  Header{Type: TypeHandshakeRequest},
				Payload: bytes.Repeat([]byte{0xAB}, NonceSize),
			},
		},
		{
			name: "Keepalive ping",
			frame: Frame{
				Header:  Header{Type: TypeKeepalive, HasAck: true, AckSequence: 5, AckBits: 3},
				Payload: []byte{42},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := tc.frame.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			decoded, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}

			if decoded.Header != tc.frame.Header {
				t.Errorf("Header = %+v, want %+v", decoded.Header, tc.frame.Header)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Errorf("Payload = %x, want %x", decoded.Payload, tc.frame.Payload)
			}
		})
	}
}

func TestFrameTooLarge(t *testing.T) {
	f := Frame{
		Header:  Header{Type: TypeReliable},
		Payload: make([]byte, MaxDatagramSize),
	}

	if _, err := f.Encode(); err != ErrMessageTooLarge {
		t.Errorf("Encode() error = %v, want %v", err, ErrMessageTooLarge)
	}

	if _, err := DecodeFrame(make([]byte, MaxDatagramSize+1)); err != ErrMessageTooLarge {
		t.Errorf("DecodeFrame() error = %v, want %v", err, ErrMessageTooLarge)
	}
}

func TestFrameMaxPayloadFits(t *testing.T) {
	f := Frame{
		Header:  Header{Type: TypePeerJoin, HasAck: true, ClientID: 1},
		Payload: make([]byte, MaxPayloadSize),
	}

	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(data) != MaxDatagramSize {
		t.Errorf("len = %d, want %d", len(data), MaxDatagramSize)
	}
}

func TestFrameEncodeTo(t *testing.T) {
	f := Frame{Header: Header{Type: TypeReliable, Sequence: 1}, Payload: []byte{1, 2, 3}}

	small := make([]byte, 4)
	if _, err := f.EncodeTo(small); err != ErrBufferTooSmall {
		t.Errorf("EncodeTo(small) error = %v, want %v", err, ErrBufferTooSmall)
	}

	buf := make([]byte, MaxDatagramSize)
	n, err := f.EncodeTo(buf)
	if err != nil {
		t.Fatalf("EncodeTo() error = %v", err)
	}
	want, _ := f.Encode()
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("EncodeTo() = %x, want %x", buf[:n], want)
	}
}

func TestDecodeFramePayloadAliases(t *testing.T) {
	data := []byte{byte(TypeUnreliable), 'a', 'b'}

	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}

	data[1] = 'z'
	if f.Payload[0] != 'z' {
		t.Error("Payload should alias the input slice")
	}
}
