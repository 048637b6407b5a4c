// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/Thermoquad/oistat/pkg/oi"
)

func TestLinkSendReceive(t *testing.T) {
	m := &MockConn{ReadData: []byte{1, 2, 3, 4}}
	l := NewLink(m)

	if err := l.Send([]byte{128, 131}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if diff := cmp.Diff([]byte{128, 131}, m.Written()); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}

	got, err := l.Receive(3)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, got); diff != "" {
		t.Errorf("Receive() mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkPartialReads(t *testing.T) {
	chunks := [][]byte{{0x01}, {0x02, 0x03}}
	m := &MockConn{ReadFunc: func(p []byte) (int, error) {
		if len(chunks) == 0 {
			return 0, nil
		}
		n := copy(p, chunks[0])
		chunks = chunks[1:]
		return n, nil
	}}
	got, err := NewLink(m).Receive(3)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, got); diff != "" {
		t.Errorf("Receive() mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		_, err := NewLink(&MockConn{ReadData: []byte{1}}).Receive(2)
		if !IsTimeout(err) {
			t.Errorf("Receive() error = %v, want timeout", err)
		}
		var te *Error
		if !errors.As(err, &te) || te.Op != "read" {
			t.Errorf("error = %#v, want *Error{Op: read}", err)
		}
	})

	t.Run("eof", func(t *testing.T) {
		_, err := NewLink(&MockConn{EOFWhenEmpty: true}).Receive(1)
		if !errors.Is(err, io.EOF) {
			t.Errorf("Receive() error = %v, want EOF", err)
		}
	})

	t.Run("write", func(t *testing.T) {
		boom := errors.New("boom")
		err := NewLink(&MockConn{WriteErr: boom}).Send([]byte{1})
		if !errors.Is(err, boom) {
			t.Errorf("Send() error = %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		m := &MockConn{}
		l := NewLink(m)
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}
		if err := l.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
		if !m.Closed {
			t.Error("connection not closed")
		}
		if err := l.Send([]byte{1}); !errors.Is(err, oi.ErrClosed) {
			t.Errorf("Send() after close error = %v", err)
		}
		if _, err := l.Receive(1); !errors.Is(err, oi.ErrClosed) {
			t.Errorf("Receive() after close error = %v", err)
		}
	})
}

func TestLinkWithSession(t *testing.T) {
	ctx := context.Background()
	m := &MockConn{}
	s, err := oi.NewSession(oi.SessionConfig{Transport: NewLink(m)})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// no reply
	if _, err := s.Query(ctx, oi.PacketOIMode); !IsTimeout(err) {
		t.Fatalf("Query() error = %v, want timeout", err)
	}

	m.OnWrite = func(p []byte) {
		if p[0] == oi.OpSensors {
			m.Feed([]byte{0x01})
		}
	}
	readings, err := s.Query(ctx, oi.PacketOIMode)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if diff := cmp.Diff([]oi.Reading{{ID: oi.PacketOIMode, Value: 1}}, readings); diff != "" {
		t.Errorf("Query() mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionResyncAfterShortReply(t *testing.T) {
	ctx := context.Background()
	queries := 0
	m := &MockConn{}
	m.OnWrite = func(p []byte) {
		if p[0] != oi.OpSensors {
			return
		}
		queries++
		switch queries {
		case 1:
			// 500 mV reply, cut short by the read timeout
			m.Feed([]byte{0x01})
		case 2:
			m.Feed([]byte{0x3A, 0x98})
		}
	}
	s, err := oi.NewSession(oi.SessionConfig{Transport: NewLink(m)})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Query(ctx, oi.PacketVoltage); !IsTimeout(err) {
		t.Fatalf("first Query() error = %v, want timeout", err)
	}
	// the rest of the first reply arrives late
	m.Feed([]byte{0xF4})

	readings, err := s.Query(ctx, oi.PacketVoltage)
	if err != nil {
		t.Fatalf("second Query() error = %v", err)
	}
	if diff := cmp.Diff([]oi.Reading{{ID: oi.PacketVoltage, Value: 15000}}, readings); diff != "" {
		t.Errorf("second Query() mismatch (-want +got):\n%s", diff)
	}
	if m.Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", m.Flushes)
	}
}

func TestLinkFlush(t *testing.T) {
	m := &MockConn{ReadData: []byte{1, 2, 3}}
	l := NewLink(m)
	if err := l.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Receive(1); !IsTimeout(err) {
		t.Errorf("Receive() after Flush error = %v, want timeout", err)
	}

	_ = l.Close()
	if err := l.Flush(); !errors.Is(err, oi.ErrClosed) {
		t.Errorf("Flush() after close error = %v", err)
	}
}

func TestWebSocketBridge(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.TextMessage, []byte("bridge ready"))
		for {
			mt, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			// echo the command with the opcode as a one byte reply
			if err := c.WriteMessage(mt, append([]byte{data[0]}, data...)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, err := DialWebSocket(context.Background(), WebSocketConfig{URL: wsURL}); err == nil {
		t.Error("DialWebSocket() without credentials succeeded")
	}
	if _, err := DialWebSocket(context.Background(), WebSocketConfig{URL: "tcp://x"}); err == nil {
		t.Error("DialWebSocket() accepted tcp scheme")
	}

	ws, err := DialWebSocket(context.Background(), WebSocketConfig{URL: wsURL, Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("DialWebSocket() error = %v", err)
	}
	l := NewLink(ws)
	defer l.Close()

	if err := l.Send([]byte{142, 35}); err != nil {
		t.Fatal(err)
	}
	got, err := l.Receive(3)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if diff := cmp.Diff([]byte{142, 142, 35}, got); diff != "" {
		t.Errorf("Receive() mismatch (-want +got):\n%s", diff)
	}
}
