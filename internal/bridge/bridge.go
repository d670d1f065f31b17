package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hmiplocal/hculink/internal/events"
	"github.com/hmiplocal/hculink/internal/hmip"
	"github.com/hmiplocal/hculink/internal/infrastructure/mqtt"
)

// recordTimeout bounds a single occurrence insert so a slow disk cannot
// stall event processing.
const recordTimeout = 5 * time.Second

// metricFields are the numeric channel readings exported to the metrics
// store when a device update carries them.
var metricFields = []string{
	"actualTemperature",
	"humidity",
	"vaporAmount",
	"illumination",
	"currentPowerConsumption",
	"energyCounter",
	"valvePosition",
	"windSpeed",
	"co2Concentration",
}

// Publisher is the MQTT surface the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MetricsWriter exports numeric readings and occurrences. Writes are
// fire-and-forget; a nil writer disables metrics.
type MetricsWriter interface {
	WriteChannelMetric(deviceID string, channelIndex int, measurement string, value float64)
	WriteOccurrence(deviceID string, channelIndex int, eventType string)
	WriteLinkMetric(metricName string, value float64)
}

// Recorder persists occurrences. A nil recorder disables history.
type Recorder interface {
	Record(ctx context.Context, occ events.Occurrence) error
}

// StateReader is the mirror surface the bridge reads published state from.
type StateReader interface {
	Device(id string) (map[string]interface{}, bool)
	Group(id string) (map[string]interface{}, bool)
	Home() map[string]interface{}
	Devices() map[string]map[string]interface{}
	Groups() map[string]map[string]interface{}
}

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config tunes bridge publishing.
type Config struct {
	// QoS applies to every published message.
	QoS byte
}

// Bridge fans hub activity out to the export surfaces: retained state on
// MQTT, occurrences to MQTT, SQLite and the metrics store, link health to
// the system topics.
type Bridge struct {
	cfg        Config
	classifier *events.Classifier
	state      StateReader
	publisher  Publisher
	metrics    MetricsWriter
	recorder   Recorder
	logger     Logger
	topics     mqtt.Topics
	commander  CommanderSource
}

func New(cfg Config, classifier *events.Classifier, state StateReader, publisher Publisher, metrics MetricsWriter, recorder Recorder, logger Logger) *Bridge {
	return &Bridge{
		cfg:        cfg,
		classifier: classifier,
		state:      state,
		publisher:  publisher,
		metrics:    metrics,
		recorder:   recorder,
		logger:     logger,
	}
}

// OnEvents processes one push transaction: state merges first, then
// publishes for everything that changed. Wire this to the hub client via
// the supervisor.
func (b *Bridge) OnEvents(pushEvents []hmip.PushEvent) {
	res := b.classifier.Process(pushEvents)

	for _, id := range res.UpdatedDevices {
		b.publishDevice(id)
	}
	for _, id := range res.UpdatedGroups {
		b.publishGroup(id)
	}
	if res.HomeChanged {
		b.publishHome()
	}

	for _, id := range res.RemovedDevices {
		b.clearTopic(b.topics.DeviceState(id))
	}
	for _, id := range res.RemovedGroups {
		b.clearTopic(b.topics.GroupState(id))
	}

	for _, occ := range res.Occurrences {
		b.handleOccurrence(occ)
	}
}

// OnSnapshot republishes the full retained state. Run after every
// snapshot load: consumers may have seen stale retained values while the
// link was down.
func (b *Bridge) OnSnapshot(*hmip.SystemState) {
	devices := b.state.Devices()
	for id := range devices {
		b.publishDevice(id)
	}
	groups := b.state.Groups()
	for id := range groups {
		b.publishGroup(id)
	}
	b.publishHome()

	b.logger.Debug("republished full state",
		"devices", len(devices),
		"groups", len(groups))
}

// OnLink publishes link transitions to the system topic and the metrics
// store.
func (b *Bridge) OnLink(up bool) {
	payload, err := json.Marshal(map[string]interface{}{
		"connected": up,
		"changed":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := b.publisher.Publish(b.topics.LinkStatus(), payload, b.cfg.QoS, true); err != nil {
		b.logger.Warn("publish link status failed", "error", err)
	}

	if b.metrics != nil {
		value := 0.0
		if up {
			value = 1.0
		}
		b.metrics.WriteLinkMetric("connected", value)
	}
}

func (b *Bridge) publishDevice(id string) {
	device, ok := b.state.Device(id)
	if !ok {
		return
	}
	b.publishState(b.topics.DeviceState(id), device)
	b.exportDeviceMetrics(id, device)
}

func (b *Bridge) publishGroup(id string) {
	group, ok := b.state.Group(id)
	if !ok {
		return
	}
	b.publishState(b.topics.GroupState(id), group)
}

func (b *Bridge) publishHome() {
	b.publishState(b.topics.HomeState(), b.state.Home())
}

func (b *Bridge) publishState(topic string, obj map[string]interface{}) {
	payload, err := json.Marshal(obj)
	if err != nil {
		b.logger.Error("marshal state failed", "topic", topic, "error", err)
		return
	}
	if err := b.publisher.Publish(topic, payload, b.cfg.QoS, true); err != nil {
		b.logger.Warn("publish state failed", "topic", topic, "error", err)
	}
}

// clearTopic deletes a retained message so removed objects disappear for
// consumers.
func (b *Bridge) clearTopic(topic string) {
	if err := b.publisher.Publish(topic, nil, b.cfg.QoS, true); err != nil {
		b.logger.Warn("clear topic failed", "topic", topic, "error", err)
	}
}

func (b *Bridge) handleOccurrence(occ events.Occurrence) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":         occ.Type,
		"channel_type": occ.ChannelType,
		"doorbell":     occ.Doorbell,
		"occurred_at":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	topic := b.topics.ChannelEvent(occ.DeviceID, occ.ChannelIndex)
	if err := b.publisher.Publish(topic, payload, b.cfg.QoS, false); err != nil {
		b.logger.Warn("publish occurrence failed", "topic", topic, "error", err)
	}

	if b.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := b.recorder.Record(ctx, occ); err != nil {
			b.logger.Warn("record occurrence failed",
				"device", occ.DeviceID,
				"channel", occ.ChannelIndex,
				"error", err)
		}
		cancel()
	}

	if b.metrics != nil {
		b.metrics.WriteOccurrence(occ.DeviceID, occ.ChannelIndex, occ.Type)
	}
}

// exportDeviceMetrics writes the numeric readings found in a device's
// functional channels.
func (b *Bridge) exportDeviceMetrics(id string, device map[string]interface{}) {
	if b.metrics == nil {
		return
	}
	channels, _ := device["functionalChannels"].(map[string]interface{})
	for key, raw := range channels {
		channel, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		for _, field := range metricFields {
			if value, ok := channel[field].(float64); ok {
				b.metrics.WriteChannelMetric(id, idx, field, value)
			}
		}
	}
}
