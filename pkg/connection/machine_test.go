package connection

import (
	"errors"
	"testing"
	"time"

	"github.com/backkem/rudp/pkg/reliability"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func connectedMachine(t *testing.T) *Machine {
	t.Helper()

	m := NewMachine(Config{})
	nonce, err := m.Start(t0)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !m.OnHandshakeResponse(7, nonce[:], t0) {
		t.Fatal("OnHandshakeResponse() = false")
	}
	return m
}

func TestMachineInitialState(t *testing.T) {
	m := NewMachine(Config{})

	if m.State() != StateIdle {
		t.Errorf("State() = %v, want %v", m.State(), StateIdle)
	}
	if m.IsConnecting() || m.IsConnected() {
		t.Error("new machine should be neither connecting nor connected")
	}
}

func TestMachineHandshakeSuccess(t *testing.T) {
	m := NewMachine(Config{})

	nonce, err := m.Start(t0)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !m.IsConnecting() {
		t.Fatal("IsConnecting() = false after Start")
	}

	// Response for a different attempt is ignored
	other := make([]byte, 16)
	if m.OnHandshakeResponse(7, other, t0) {
		t.Error("response with wrong nonce accepted")
	}
	if m.OnHandshakeResponse(0, nonce[:], t0) {
		t.Error("response with client ID 0 accepted")
	}

	if !m.OnHandshakeResponse(7, nonce[:], t0) {
		t.Fatal("valid response rejected")
	}
	if !m.IsConnected() || m.ClientID() != 7 {
		t.Errorf("State() = %v, ClientID() = %d, want Connected, 7", m.State(), m.ClientID())
	}

	// Duplicate response is not a second transition
	if m.OnHandshakeResponse(7, nonce[:], t0) {
		t.Error("duplicate response reported a transition")
	}
}

func TestMachineStartWhileActive(t *testing.T) {
	m := NewMachine(Config{})
	m.Start(t0)

	if _, err := m.Start(t0); err != ErrAlreadyConnected {
		t.Errorf("Start() error = %v, want %v", err, ErrAlreadyConnected)
	}
}

func TestMachineHandshakeExhaustion(t *testing.T) {
	m := NewMachine(Config{
		HandshakeRetryInterval: 100 * time.Millisecond,
		MaxHandshakeAttempts:   3,
	})
	m.Start(t0)

	now := t0
	var actions []HandshakeAction
	for i := 0; i < 10; i++ {
		now = now.Add(50 * time.Millisecond)
		if a := m.HandshakeDue(now); a != HandshakeNone {
			actions = append(actions, a)
		}
	}

	want := []HandshakeAction{HandshakeResend, HandshakeResend, HandshakeFail}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("actions[%d] = %v, want %v", i, actions[i], want[i])
		}
	}

	if m.HandshakeAttempts() != 3 {
		t.Errorf("HandshakeAttempts() = %d, want 3", m.HandshakeAttempts())
	}
	if m.IsConnecting() || m.State() != StateDisconnected {
		t.Errorf("State() = %v, want Disconnected", m.State())
	}
	if m.Reason() != ReasonHandshakeFailed {
		t.Errorf("Reason() = %v, want %v", m.Reason(), ReasonHandshakeFailed)
	}
}

func TestMachineInactivityTimeout(t *testing.T) {
	m := connectedMachine(t)

	m.OnActivity(t0.Add(4 * time.Second))
	if m.CheckTimeout(t0.Add(8 * time.Second)) {
		t.Fatal("timed out despite recent activity")
	}
	if !m.CheckTimeout(t0.Add(9 * time.Second)) {
		t.Fatal("CheckTimeout() = false after 5s of silence")
	}
	if m.Reason() != ReasonTimeout {
		t.Errorf("Reason() = %v, want %v", m.Reason(), ReasonTimeout)
	}
	if m.CheckTimeout(t0.Add(time.Minute)) {
		t.Error("second CheckTimeout() reported another transition")
	}
}

func TestMachineKeepalive(t *testing.T) {
	m := connectedMachine(t)

	if _, due := m.KeepaliveDue(t0.Add(500 * time.Millisecond)); due {
		t.Fatal("keepalive due before interval")
	}

	id, due := m.KeepaliveDue(t0.Add(time.Second))
	if !due {
		t.Fatal("keepalive not due after interval")
	}

	if _, ok := m.OnKeepaliveEcho(id+1, t0.Add(time.Second)); ok {
		t.Error("mismatched echo accepted")
	}

	rtt, ok := m.OnKeepaliveEcho(id, t0.Add(time.Second+30*time.Millisecond))
	if !ok || rtt != 30*time.Millisecond {
		t.Errorf("OnKeepaliveEcho() = %v, %v, want 30ms, true", rtt, ok)
	}

	if _, ok := m.OnKeepaliveEcho(id, t0.Add(2*time.Second)); ok {
		t.Error("repeated echo accepted")
	}
}

func TestMachineCloseIdempotent(t *testing.T) {
	m := connectedMachine(t)

	if !m.Close(ReasonLocal) {
		t.Fatal("Close() = false on connected machine")
	}
	if m.Close(ReasonLocal) {
		t.Error("second Close() = true")
	}
	if m.Reason() != ReasonLocal {
		t.Errorf("Reason() = %v, want %v", m.Reason(), ReasonLocal)
	}

	// Reconnect from Disconnected
	if _, err := m.Start(t0); err != nil {
		t.Errorf("Start() after Close error = %v", err)
	}
	if m.ClientID() != 0 {
		t.Errorf("ClientID() = %d, want 0 after restart", m.ClientID())
	}
}

func TestReasonErr(t *testing.T) {
	tests := []struct {
		reason Reason
		want   error
	}{
		{ReasonNone, nil},
		{ReasonHandshakeFailed, ErrConnectionFailed},
		{ReasonTimeout, ErrTimedOut},
		{ReasonRemote, ErrRemoteDisconnected},
		{ReasonLocal, ErrLocalDisconnect},
		{ReasonSendFailure, reliability.ErrDeliveryFailed},
	}

	for _, tc := range tests {
		t.Run(tc.reason.String(), func(t *testing.T) {
			if got := tc.reason.Err(); !errors.Is(got, tc.want) || (got == nil) != (tc.want == nil) {
				t.Errorf("Err() = %v, want %v", got, tc.want)
			}
		})
	}
}
