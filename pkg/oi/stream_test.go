// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestStreamManager(t *testing.T) {
	m := NewStreamManager()
	if m.Active() || m.Subscription() != nil {
		t.Fatal("new manager has a subscription")
	}

	cmd, err := m.SetSubscription([]PacketID{PacketDistance, PacketAngle})
	if err != nil {
		t.Fatalf("SetSubscription() error = %v", err)
	}
	if diff := cmp.Diff([]PacketID{PacketDistance, PacketAngle}, cmd.Packets); diff != "" {
		t.Errorf("StartStream mismatch (-want +got):\n%s", diff)
	}
	gen := m.Generation()

	if m.Pause().Resume || !m.Paused() {
		t.Error("Pause() did not pause")
	}
	if diff := cmp.Diff([]PacketID{PacketDistance, PacketAngle}, m.Subscription()); diff != "" {
		t.Errorf("Pause() changed the subscription (-want +got):\n%s", diff)
	}
	if !m.Resume().Resume || m.Paused() {
		t.Error("Resume() did not resume")
	}
	if m.Generation() != gen {
		t.Error("pause/resume changed the generation")
	}

	// replaced wholesale, never merged
	if _, err := m.SetSubscription([]PacketID{PacketVoltage}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]PacketID{PacketVoltage}, m.Subscription()); diff != "" {
		t.Errorf("subscription not replaced (-want +got):\n%s", diff)
	}
	if m.Generation() == gen {
		t.Error("replacement did not bump the generation")
	}

	// a failed replacement keeps the old list
	if _, err := m.SetSubscription([]PacketID{PacketWall, 50}); !IsInvalidInput(err) {
		t.Errorf("SetSubscription(bad id) error = %v", err)
	}
	if diff := cmp.Diff([]PacketID{PacketVoltage}, m.Subscription()); diff != "" {
		t.Errorf("failed call changed the subscription (-want +got):\n%s", diff)
	}

	m.Clear()
	if m.Active() {
		t.Error("Clear() left the stream active")
	}
}

func TestSubscriptionIsCopied(t *testing.T) {
	m := NewStreamManager()
	ids := []PacketID{PacketWall}
	if _, err := m.SetSubscription(ids); err != nil {
		t.Fatal(err)
	}
	ids[0] = PacketAngle
	if m.Subscription()[0] != PacketWall {
		t.Error("manager aliases the caller's slice")
	}
}

func TestFrameSizeAndCadence(t *testing.T) {
	size, err := FrameSize([]PacketID{PacketDistance, PacketAngle})
	if err != nil {
		t.Fatal(err)
	}
	// 19, N, 19, d, d, 20, a, a, checksum
	if size != 9 {
		t.Errorf("FrameSize() = %d, want 9", size)
	}

	ok, d, err := CheckCadence([]PacketID{PacketDistance, PacketAngle}, DefaultBaudCode)
	if err != nil || !ok {
		t.Errorf("CheckCadence(57600) = %v, %v, %v", ok, d, err)
	}

	// group 6 is 52 data bytes plus 4 framing bytes; 560 bits do not fit in 15ms at 19200
	ok, d, err = CheckCadence([]PacketID{GroupAll}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("CheckCadence(group 6, 19200) fits in %v", d)
	}
	if d <= 15*time.Millisecond {
		t.Errorf("frame time = %v", d)
	}

	if _, _, err := CheckCadence([]PacketID{PacketWall}, 12); !IsInvalidInput(err) {
		t.Errorf("CheckCadence(code 12) error = %v", err)
	}
}
