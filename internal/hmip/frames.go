package hmip

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Frame type discriminators used on the plugin WebSocket.
const (
	TypeSystemRequest  = "HMIP_SYSTEM_REQUEST"
	TypeSystemResponse = "HMIP_SYSTEM_RESPONSE"
	TypeSystemEvent    = "HMIP_SYSTEM_EVENT"
)

// Push event types carried inside HMIP_SYSTEM_EVENT transactions.
const (
	PushDeviceChanged      = "DEVICE_CHANGED"
	PushDeviceRemoved      = "DEVICE_REMOVED"
	PushGroupChanged       = "GROUP_CHANGED"
	PushGroupRemoved       = "GROUP_REMOVED"
	PushHomeChanged        = "HOME_CHANGED"
	PushDeviceChannelEvent = "DEVICE_CHANNEL_EVENT"
)

// Channel event types reported by DEVICE_CHANNEL_EVENT pushes.
const (
	ChannelEventPressShort      = "PRESS_SHORT"
	ChannelEventPressLong       = "PRESS_LONG"
	ChannelEventPressLongStart  = "PRESS_LONG_START"
	ChannelEventPressLongRepeat = "PRESS_LONG_REPEAT"
	ChannelEventPressLongStop   = "PRESS_LONG_STOP"
)

// Message is the outer envelope for every frame exchanged with the hub.
type Message struct {
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	PluginID string          `json:"pluginId,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// RequestBody is the body of an HMIP_SYSTEM_REQUEST: a REST-style path
// plus an optional JSON payload.
type RequestBody struct {
	Path string          `json:"path"`
	Body json.RawMessage `json:"body,omitempty"`
}

// ResponseBody is the body of an HMIP_SYSTEM_RESPONSE. Code follows HTTP
// conventions; Body holds the path-specific payload, if any.
type ResponseBody struct {
	Code int             `json:"code"`
	Body json.RawMessage `json:"body,omitempty"`
}

// EventBody is the body of an HMIP_SYSTEM_EVENT frame.
type EventBody struct {
	EventTransaction EventTransaction `json:"eventTransaction"`
}

// EventTransaction groups the push events delivered in one frame. The hub
// keys events by an opaque index whose order is not guaranteed on the wire.
type EventTransaction struct {
	Events map[string]PushEvent `json:"events"`
}

// PushEvent is a single state change or channel event pushed by the hub.
// Exactly one of Device, Group or Home is populated for *_CHANGED events;
// DeviceID and ChannelIndex identify the source of a DEVICE_CHANNEL_EVENT.
type PushEvent struct {
	PushEventType    string                 `json:"pushEventType"`
	Device           map[string]interface{} `json:"device,omitempty"`
	Group            map[string]interface{} `json:"group,omitempty"`
	Home             map[string]interface{} `json:"home,omitempty"`
	DeviceID         string                 `json:"deviceId,omitempty"`
	ChannelIndex     *int                   `json:"functionalChannelIndex,omitempty"`
	ChannelEventType string                 `json:"channelEventType,omitempty"`
}

// NewSystemRequest builds a request frame for the given path and payload.
// The payload may be nil for paths that take no body.
func NewSystemRequest(id, pluginID, path string, payload interface{}) (Message, error) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("hmip: encode request payload for %s: %w", path, err)
		}
		raw = encoded
	}

	body, err := json.Marshal(RequestBody{Path: path, Body: raw})
	if err != nil {
		return Message{}, fmt.Errorf("hmip: encode request body for %s: %w", path, err)
	}

	return Message{
		Type:     TypeSystemRequest,
		ID:       id,
		PluginID: pluginID,
		Body:     body,
	}, nil
}

// DecodeEvents parses an event frame body and returns its push events in a
// deterministic order (sorted by the hub's transaction key).
func DecodeEvents(body json.RawMessage) ([]PushEvent, error) {
	var eb EventBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return nil, fmt.Errorf("%w: event body: %v", ErrMalformedFrame, err)
	}

	keys := make([]string, 0, len(eb.EventTransaction.Events))
	for k := range eb.EventTransaction.Events {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	events := make([]PushEvent, 0, len(keys))
	for _, k := range keys {
		events = append(events, eb.EventTransaction.Events[k])
	}
	return events, nil
}
