package events

import (
	"fmt"

	"github.com/hmiplocal/hculink/internal/hmip"
)

// Tables holds the channel classification rules: which functional
// channels are treated as button inputs and how presses on them are
// detected. The tables are fixed at construction so behaviour never
// depends on mutable process-wide state.
type Tables struct {
	// EventChannelTypes are channel types whose presses surface as a
	// bumped lastStatusUpdate on a DEVICE_CHANGED push.
	EventChannelTypes map[string]struct{}

	// ChannelEventOnlyTypes are channel types that announce presses
	// through explicit DEVICE_CHANNEL_EVENT frames. Their
	// lastStatusUpdate moves for unrelated reasons, so timestamp
	// detection on them would produce phantom presses.
	ChannelEventOnlyTypes map[string]struct{}

	// DoorbellChannelTypes mark channels whose presses are doorbell
	// rings rather than generic button presses.
	DoorbellChannelTypes map[string]struct{}

	// PressEventTypes are the DEVICE_CHANNEL_EVENT channelEventTypes
	// recognised as presses. Anything else (UNREACH, CONFIG_PENDING,
	// future additions) is ignored.
	PressEventTypes map[string]struct{}

	// MultiPurposeChannelType and MultiPurposeLinkConfig identify switch
	// channels that double as button inputs: a channel of this type
	// counts as a button only when its internal link configuration
	// matches (e.g. the HmIP-BSL's top and bottom rockers).
	MultiPurposeChannelType string
	MultiPurposeLinkConfig  string
}

// DefaultTables returns the classification rules for the current
// Homematic IP device generation.
func DefaultTables() Tables {
	return Tables{
		EventChannelTypes: map[string]struct{}{
			"SINGLE_KEY_CHANNEL":                   {},
			"KEY_REMOTE_CONTROL_CHANNEL":           {},
			"WALL_MOUNTED_TRANSMITTER_CHANNEL":     {},
			"MULTI_MODE_INPUT_TRANSMITTER_CHANNEL": {},
			"MULTI_MODE_INPUT_CHANNEL":             {},
		},
		ChannelEventOnlyTypes: map[string]struct{}{
			"MULTI_MODE_INPUT_CHANNEL": {},
		},
		DoorbellChannelTypes: map[string]struct{}{
			"MULTI_MODE_INPUT_TRANSMITTER_CHANNEL": {},
		},
		PressEventTypes: map[string]struct{}{
			hmip.ChannelEventPressShort:      {},
			hmip.ChannelEventPressLong:       {},
			hmip.ChannelEventPressLongStart:  {},
			hmip.ChannelEventPressLongRepeat: {},
			hmip.ChannelEventPressLongStop:   {},
		},
		MultiPurposeChannelType: "SWITCH_CHANNEL",
		MultiPurposeLinkConfig:  "DOUBLE_INPUT_SWITCH",
	}
}

// validate checks the tables for internal consistency. An explicit-only
// or doorbell type that is not a button channel type at all would
// silently never match.
func (t Tables) validate() error {
	for channelType := range t.ChannelEventOnlyTypes {
		if _, ok := t.EventChannelTypes[channelType]; !ok {
			return fmt.Errorf("events: channel-event-only type %q is not an event channel type", channelType)
		}
	}
	for channelType := range t.DoorbellChannelTypes {
		if _, ok := t.EventChannelTypes[channelType]; !ok {
			return fmt.Errorf("events: doorbell type %q is not an event channel type", channelType)
		}
	}
	if len(t.PressEventTypes) == 0 {
		return fmt.Errorf("events: no press event types configured")
	}
	return nil
}

// isPressEvent reports whether an explicit channel event type counts as
// a button press.
func (t Tables) isPressEvent(eventType string) bool {
	_, ok := t.PressEventTypes[eventType]
	return ok
}

// isButtonChannel reports whether a functional channel can produce
// presses at all.
func (t Tables) isButtonChannel(channel map[string]interface{}) bool {
	channelType, _ := channel["functionalChannelType"].(string)
	if _, ok := t.EventChannelTypes[channelType]; ok {
		return true
	}
	if channelType != t.MultiPurposeChannelType {
		return false
	}
	link, _ := channel["internalLinkConfiguration"].(map[string]interface{})
	linkType, _ := link["internalLinkConfigurationType"].(string)
	return linkType == t.MultiPurposeLinkConfig
}

// timestampEligible reports whether a button channel may use timestamp
// comparison for press detection.
func (t Tables) timestampEligible(channel map[string]interface{}) bool {
	channelType, _ := channel["functionalChannelType"].(string)
	_, explicitOnly := t.ChannelEventOnlyTypes[channelType]
	return !explicitOnly
}

// isDoorbell reports whether presses on the channel type ring a doorbell.
func (t Tables) isDoorbell(channelType string) bool {
	_, ok := t.DoorbellChannelTypes[channelType]
	return ok
}
