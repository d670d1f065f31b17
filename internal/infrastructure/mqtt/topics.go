package mqtt

import "fmt"

// Topic prefixes for the hculink MQTT surface.
//
// State topics are retained so new subscribers immediately see the current
// mirror contents. Event topics are never retained - a button press is a
// moment, not a state.
const (
	// TopicPrefix is the base for all hculink topics.
	TopicPrefix = "hculink"

	// TopicPrefixState is the base for retained state topics.
	// Scheme: hculink/state/{category}/{id}
	TopicPrefixState = "hculink/state"

	// TopicPrefixEvent is the base for button-press event topics.
	// Scheme: hculink/event/{device_id}/{channel_index}
	TopicPrefixEvent = "hculink/event"

	// TopicPrefixCommand is the base for inbound control commands.
	// Scheme: hculink/command/{category}/{id}...
	TopicPrefixCommand = "hculink/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hculink/system"
)

// Topics provides builders for hculink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("3014F711A000001")
//	// Returns: "hculink/state/device/3014F711A000001"
type Topics struct{}

// DeviceState returns the retained state topic for a device.
//
// Example: hculink/state/device/3014F711A000001
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s", TopicPrefixState, deviceID)
}

// GroupState returns the retained state topic for a group.
//
// Example: hculink/state/group/00000000-0000-0000-0000-000000000015
func (Topics) GroupState(groupID string) string {
	return fmt.Sprintf("%s/group/%s", TopicPrefixState, groupID)
}

// HomeState returns the retained state topic for the home object.
//
// Example: hculink/state/home
func (Topics) HomeState() string {
	return fmt.Sprintf("%s/home", TopicPrefixState)
}

// ChannelEvent returns the topic for button-press occurrences on a channel.
//
// Example: hculink/event/3014F711A000001/1
func (Topics) ChannelEvent(deviceID string, channelIndex int) string {
	return fmt.Sprintf("%s/%s/%d", TopicPrefixEvent, deviceID, channelIndex)
}

// DeviceCommand returns the command topic for one device channel.
//
// Example: hculink/command/device/3014F711A000001/1
func (Topics) DeviceCommand(deviceID string, channelIndex int) string {
	return fmt.Sprintf("%s/device/%s/%d", TopicPrefixCommand, deviceID, channelIndex)
}

// GroupCommand returns the command topic for a group.
//
// Example: hculink/command/group/00000000-0000-0000-0000-000000000015
func (Topics) GroupCommand(groupID string) string {
	return fmt.Sprintf("%s/group/%s", TopicPrefixCommand, groupID)
}

// HomeCommand returns the topic for home-wide commands (vacation,
// absence, security zones, rules).
//
// Example: hculink/command/home
func (Topics) HomeCommand() string {
	return fmt.Sprintf("%s/home", TopicPrefixCommand)
}

// AllDeviceCommands returns a pattern matching all device command topics.
//
// Pattern: hculink/command/device/+/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/device/+/+", TopicPrefixCommand)
}

// AllGroupCommands returns a pattern matching all group command topics.
//
// Pattern: hculink/command/group/+
func (Topics) AllGroupCommands() string {
	return fmt.Sprintf("%s/group/+", TopicPrefixCommand)
}

// SystemStatus returns the system status topic.
// Carries the LWT and the online/offline lifecycle payloads.
//
// Example: hculink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// LinkStatus returns the topic reporting the hub connection state.
//
// Example: hculink/system/link
func (Topics) LinkStatus() string {
	return fmt.Sprintf("%s/link", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching all retained device states.
//
// Pattern: hculink/state/device/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+", TopicPrefixState)
}

// AllGroupStates returns a pattern matching all retained group states.
//
// Pattern: hculink/state/group/+
func (Topics) AllGroupStates() string {
	return fmt.Sprintf("%s/group/+", TopicPrefixState)
}

// AllChannelEvents returns a pattern matching all button-press events.
//
// Pattern: hculink/event/+/+
func (Topics) AllChannelEvents() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixEvent)
}

// AllTopics returns a pattern matching all hculink topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: hculink/#
func (Topics) AllTopics() string {
	return "hculink/#"
}
