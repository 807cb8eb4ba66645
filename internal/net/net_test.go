package net

import (
	"bytes"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/illarion/server/internal/net/packet"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 5 || buf.Bytes()[0] != 5 {
		t.Fatalf("encoded = %v", buf.Bytes())
	}
	got, err := ReadFrame(&buf)
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %v err %v", got, err)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{2, 0})); err == nil {
		t.Fatalf("empty frame accepted")
	}
	if err := WriteFrame(&buf, nil); err == nil {
		t.Fatalf("empty payload written")
	}
}

func newPipeSession(t *testing.T, h FrameHandler, opts SessionOptions) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	s := NewSession(server, 1, h, opts, zaptest.NewLogger(t))
	s.Start()
	t.Cleanup(func() {
		s.Close()
		client.Close()
	})
	return s, client
}

func TestSessionDeliversFramesAndTouches(t *testing.T) {
	clock := time.Unix(100, 0)
	got := make(chan []byte, 1)
	s, client := newPipeSession(t, func(_ *Session, f []byte) { got <- f }, SessionOptions{
		Now: func() time.Time { return clock },
	})
	clock = time.Unix(200, 0)

	if err := WriteFrame(client, []byte{packet.C_KEEPALIVE}); err != nil {
		t.Fatal(err)
	}
	select {
	case f := <-got:
		if f[0] != packet.C_KEEPALIVE {
			t.Fatalf("frame = %v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}
	if !s.LastKeepalive().Equal(time.Unix(200, 0)) {
		t.Fatalf("keepalive = %v", s.LastKeepalive())
	}
}

func TestShutdownSendWritesThenCloses(t *testing.T) {
	s, client := newPipeSession(t, func(*Session, []byte) {}, SessionOptions{})
	if !s.Online() {
		t.Fatalf("new session offline")
	}
	s.ShutdownSend(packet.LogOut(packet.LogoutUnstableConnection))
	s.ShutdownSend(packet.LogOut(packet.LogoutByPlayer)) // ignored

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	f, err := ReadFrame(client)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f[0] != packet.S_LOGOUT || f[1] != packet.LogoutUnstableConnection {
		t.Fatalf("frame = %v", f)
	}
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not closed after final frame")
	}
	if s.Online() {
		t.Fatalf("closed session still online")
	}
	s.Send([]byte{1}) // no-op after close
}

func TestRateLimitDisconnects(t *testing.T) {
	s, client := newPipeSession(t, func(*Session, []byte) {}, SessionOptions{
		PktPerSec: 2,
		Now:       func() time.Time { return time.Unix(5, 0) },
	})
	go func() {
		for i := 0; i < 3; i++ {
			if WriteFrame(client, []byte{packet.C_KEEPALIVE}) != nil {
				return
			}
		}
	}()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flooding client not disconnected")
	}
}
