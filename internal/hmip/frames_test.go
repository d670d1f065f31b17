package hmip

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewSystemRequest(t *testing.T) {
	msg, err := NewSystemRequest("req-1", "de.example.plugin", PathSetSwitchState, map[string]interface{}{
		"deviceId":     "3014F711A0000000000ABCDE",
		"channelIndex": 1,
		"on":           true,
	})
	if err != nil {
		t.Fatalf("NewSystemRequest: %v", err)
	}

	if msg.Type != TypeSystemRequest {
		t.Errorf("Type = %q, want %q", msg.Type, TypeSystemRequest)
	}
	if msg.ID != "req-1" {
		t.Errorf("ID = %q, want req-1", msg.ID)
	}
	if msg.PluginID != "de.example.plugin" {
		t.Errorf("PluginID = %q", msg.PluginID)
	}

	var body RequestBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Path != PathSetSwitchState {
		t.Errorf("Path = %q, want %q", body.Path, PathSetSwitchState)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body.Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["on"] != true {
		t.Errorf("payload on = %v, want true", payload["on"])
	}
}

func TestNewSystemRequest_NilPayload(t *testing.T) {
	msg, err := NewSystemRequest("req-2", "de.example.plugin", PathGetSystemState, nil)
	if err != nil {
		t.Fatalf("NewSystemRequest: %v", err)
	}

	var body RequestBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Path != PathGetSystemState {
		t.Errorf("Path = %q", body.Path)
	}
	if len(body.Body) != 0 {
		t.Errorf("expected empty payload, got %s", body.Body)
	}
}

func TestDecodeEvents_DeterministicOrder(t *testing.T) {
	// Transaction keys arrive in map order on the wire; decoding must
	// sort them so consumers always see the same sequence.
	raw := []byte(`{
		"eventTransaction": {
			"events": {
				"10": {"pushEventType": "HOME_CHANGED", "home": {"id": "home-1"}},
				"0":  {"pushEventType": "DEVICE_CHANGED", "device": {"id": "dev-1"}},
				"1":  {"pushEventType": "GROUP_CHANGED", "group": {"id": "grp-1"}}
			}
		}
	}`)

	events, err := DecodeEvents(raw)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	// Lexicographic key order: "0", "1", "10".
	want := []string{PushDeviceChanged, PushGroupChanged, PushHomeChanged}
	for i, e := range events {
		if e.PushEventType != want[i] {
			t.Errorf("events[%d].PushEventType = %q, want %q", i, e.PushEventType, want[i])
		}
	}
}

func TestDecodeEvents_ChannelEvent(t *testing.T) {
	raw := []byte(`{
		"eventTransaction": {
			"events": {
				"0": {
					"pushEventType": "DEVICE_CHANNEL_EVENT",
					"deviceId": "dev-1",
					"functionalChannelIndex": 1,
					"channelEventType": "PRESS_SHORT"
				}
			}
		}
	}`)

	events, err := DecodeEvents(raw)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	e := events[0]
	if e.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q", e.DeviceID)
	}
	if e.ChannelIndex == nil || *e.ChannelIndex != 1 {
		t.Errorf("ChannelIndex = %v, want 1", e.ChannelIndex)
	}
	if e.ChannelEventType != ChannelEventPressShort {
		t.Errorf("ChannelEventType = %q", e.ChannelEventType)
	}
}

func TestDecodeEvents_Malformed(t *testing.T) {
	_, err := DecodeEvents([]byte(`{not json`))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeEvents_Empty(t *testing.T) {
	events, err := DecodeEvents([]byte(`{"eventTransaction": {"events": {}}}`))
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}
