package events

import (
	"sort"
	"strconv"

	"github.com/hmiplocal/hculink/internal/hmip"
)

// Press types emitted in occurrences. Explicit channel events keep the
// hub's type; timestamp-detected presses carry TypePress because the hub
// does not say how long the button was held.
const TypePress = "PRESS"

// Occurrence is one detected button press or doorbell ring.
type Occurrence struct {
	DeviceID     string
	ChannelIndex int
	Type         string
	ChannelType  string
	Doorbell     bool
}

// StateStore is the slice of the mirror the classifier needs. Apply
// methods return the object's pre-merge state, nil for unknown objects.
type StateStore interface {
	ApplyDevice(device map[string]interface{}) map[string]interface{}
	ApplyGroup(group map[string]interface{}) map[string]interface{}
	ApplyHome(home map[string]interface{})
	RemoveDevice(id string) bool
	RemoveGroup(id string) bool
	Device(id string) (map[string]interface{}, bool)
}

// Logger is the minimal logging interface the classifier needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Result summarizes one processed event transaction.
type Result struct {
	Occurrences    []Occurrence
	UpdatedDevices []string
	UpdatedGroups  []string
	RemovedDevices []string
	RemovedGroups  []string
	HomeChanged    bool
}

// Classifier folds push event transactions into the state store and
// extracts button occurrences. The channel classification tables are
// fixed at construction.
type Classifier struct {
	tables Tables
	store  StateStore
	logger Logger
}

func NewClassifier(tables Tables, store StateStore, logger Logger) (*Classifier, error) {
	if err := tables.validate(); err != nil {
		return nil, err
	}
	return &Classifier{tables: tables, store: store, logger: logger}, nil
}

// Process applies one event transaction in hub order and returns what
// changed. Explicit DEVICE_CHANNEL_EVENT frames always win: a channel
// that produced one is excluded from timestamp detection for the rest of
// the transaction so a single press never yields two occurrences.
func (c *Classifier) Process(events []hmip.PushEvent) Result {
	var res Result

	// channel key -> already reported via an explicit event
	suppressed := make(map[string]struct{})

	for _, ev := range events {
		if ev.PushEventType != hmip.PushDeviceChannelEvent {
			continue
		}
		occ, ok := c.explicitOccurrence(ev)
		if !ok {
			continue
		}
		suppressed[channelKey(occ.DeviceID, occ.ChannelIndex)] = struct{}{}
		res.Occurrences = append(res.Occurrences, occ)
	}

	for _, ev := range events {
		switch ev.PushEventType {
		case hmip.PushDeviceChanged:
			c.applyDeviceChange(ev, suppressed, &res)

		case hmip.PushGroupChanged:
			if id, ok := objectID(ev.Group); ok {
				c.store.ApplyGroup(ev.Group)
				res.UpdatedGroups = append(res.UpdatedGroups, id)
			}

		case hmip.PushHomeChanged:
			if ev.Home != nil {
				c.store.ApplyHome(ev.Home)
				res.HomeChanged = true
			}

		case hmip.PushDeviceRemoved:
			if ev.DeviceID != "" && c.store.RemoveDevice(ev.DeviceID) {
				res.RemovedDevices = append(res.RemovedDevices, ev.DeviceID)
			}

		case hmip.PushGroupRemoved:
			if id, ok := objectID(ev.Group); ok && c.store.RemoveGroup(id) {
				res.RemovedGroups = append(res.RemovedGroups, id)
			}
		}
	}

	return res
}

func (c *Classifier) explicitOccurrence(ev hmip.PushEvent) (Occurrence, bool) {
	if ev.DeviceID == "" || ev.ChannelIndex == nil {
		c.logger.Debug("incomplete channel event", "device", ev.DeviceID)
		return Occurrence{}, false
	}
	if !c.tables.isPressEvent(ev.ChannelEventType) {
		return Occurrence{}, false
	}

	occ := Occurrence{
		DeviceID:     ev.DeviceID,
		ChannelIndex: *ev.ChannelIndex,
		Type:         ev.ChannelEventType,
	}
	if dev, ok := c.store.Device(ev.DeviceID); ok {
		channel := functionalChannel(dev, occ.ChannelIndex)
		occ.ChannelType, _ = channel["functionalChannelType"].(string)
		occ.Doorbell = c.tables.isDoorbell(occ.ChannelType)
	}
	return occ, true
}

// applyDeviceChange merges a device push and runs timestamp-based press
// detection on its button channels.
func (c *Classifier) applyDeviceChange(ev hmip.PushEvent, suppressed map[string]struct{}, res *Result) {
	id, ok := objectID(ev.Device)
	if !ok {
		return
	}

	// Button channels carried by this push, identified before the merge
	// so detection only runs on channels the hub actually touched.
	pushed := c.buttonChannelIndexes(ev.Device)

	previous := c.store.ApplyDevice(ev.Device)
	res.UpdatedDevices = append(res.UpdatedDevices, id)

	if len(pushed) == 0 || previous == nil {
		// A device seen for the first time has no baseline to compare
		// against; its next push will.
		return
	}

	current, ok := c.store.Device(id)
	if !ok {
		return
	}

	for _, idx := range pushed {
		if _, skip := suppressed[channelKey(id, idx)]; skip {
			continue
		}

		channel := functionalChannel(current, idx)
		if channel == nil || !c.tables.timestampEligible(channel) {
			continue
		}

		newTS, newOK := numberValue(channel["lastStatusUpdate"])
		oldTS, oldOK := numberValue(functionalChannel(previous, idx)["lastStatusUpdate"])

		fire := false
		switch {
		case newOK && oldOK:
			fire = newTS != oldTS
		case !newOK:
			// Stateless channels never report a timestamp; their mere
			// presence in a push is the press.
			fire = true
		}
		if !fire {
			continue
		}

		channelType, _ := channel["functionalChannelType"].(string)
		res.Occurrences = append(res.Occurrences, Occurrence{
			DeviceID:     id,
			ChannelIndex: idx,
			Type:         TypePress,
			ChannelType:  channelType,
			Doorbell:     c.tables.isDoorbell(channelType),
		})
	}
}

// buttonChannelIndexes returns the sorted indexes of the button-capable
// channels present in a pushed device object.
func (c *Classifier) buttonChannelIndexes(device map[string]interface{}) []int {
	channels, _ := device["functionalChannels"].(map[string]interface{})
	var indexes []int
	for key, raw := range channels {
		channel, ok := raw.(map[string]interface{})
		if !ok || !c.tables.isButtonChannel(channel) {
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}

func functionalChannel(device map[string]interface{}, index int) map[string]interface{} {
	if device == nil {
		return nil
	}
	channels, _ := device["functionalChannels"].(map[string]interface{})
	channel, _ := channels[strconv.Itoa(index)].(map[string]interface{})
	return channel
}

func objectID(obj map[string]interface{}) (string, bool) {
	id, ok := obj["id"].(string)
	return id, ok && id != ""
}

func channelKey(deviceID string, index int) string {
	return deviceID + "/" + strconv.Itoa(index)
}

func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
