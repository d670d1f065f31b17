package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hmiplocal/hculink/internal/infrastructure/mqtt"
)

// commandTimeout bounds one hub command issued from an MQTT message.
const commandTimeout = 10 * time.Second

// Commander is the hub control surface commands are driven through.
// Satisfied by the hub client; nil while the link is down.
type Commander interface {
	SetSwitchState(ctx context.Context, deviceID string, channelIndex int, on bool) error
	SetDimLevel(ctx context.Context, deviceID string, channelIndex int, dimLevel float64) error
	SetShutterLevel(ctx context.Context, deviceID string, channelIndex int, shutterLevel float64) error
	SetSlatsLevel(ctx context.Context, deviceID string, channelIndex int, shutterLevel, slatsLevel float64) error
	Stop(ctx context.Context, deviceID string, channelIndex int) error
	SetLockState(ctx context.Context, deviceID string, channelIndex int, targetLockState, pin string) error
	SetColorTemperatureDimLevel(ctx context.Context, deviceID string, channelIndex int, colorTemperature int, dimLevel float64) error
	SetHueSaturationDimLevel(ctx context.Context, deviceID string, channelIndex, hue int, saturationLevel, dimLevel float64) error
	SetSimpleRGBColorState(ctx context.Context, deviceID string, channelIndex int, color string, dimLevel float64) error
	SendDoorCommand(ctx context.Context, deviceID string, channelIndex int, command string) error
	ToggleGarageDoorState(ctx context.Context, deviceID string, channelIndex int) error
	SetWateringSwitchState(ctx context.Context, deviceID string, channelIndex int, active bool) error
	ResetEnergyCounter(ctx context.Context, deviceID string, channelIndex int) error
	PlaySound(ctx context.Context, deviceID string, channelIndex int, soundFile string, volumeLevel float64, onTime int) error

	SetSetPointTemperature(ctx context.Context, groupID string, temperature float64) error
	SetControlMode(ctx context.Context, groupID, mode string) error
	SetBoost(ctx context.Context, groupID string, boost bool) error

	ActivateVacation(ctx context.Context, temperature float64, endTime string) error
	DeactivateVacation(ctx context.Context) error
	ActivateAbsencePermanent(ctx context.Context) error
	DeactivateAbsence(ctx context.Context) error
	SetExtendedZonesActivation(ctx context.Context, internal, external bool) error
	EnableSimpleRule(ctx context.Context, ruleID string, enabled bool) error
}

// CommanderSource yields the current commander on every command, so a
// reconnected hub session is picked up without rewiring.
type CommanderSource func() Commander

// Subscriber is the MQTT surface inbound commands arrive on.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// SetCommander wires the control path. Call before SubscribeCommands.
func (b *Bridge) SetCommander(src CommanderSource) {
	b.commander = src
}

// SubscribeCommands registers the inbound command topics. Subscriptions
// survive broker reconnects; hub reconnects are handled through the
// CommanderSource.
func (b *Bridge) SubscribeCommands(sub Subscriber) error {
	if err := sub.Subscribe(b.topics.AllDeviceCommands(), b.cfg.QoS, b.handleDeviceCommand); err != nil {
		return fmt.Errorf("subscribe device commands: %w", err)
	}
	if err := sub.Subscribe(b.topics.AllGroupCommands(), b.cfg.QoS, b.handleGroupCommand); err != nil {
		return fmt.Errorf("subscribe group commands: %w", err)
	}
	if err := sub.Subscribe(b.topics.HomeCommand(), b.cfg.QoS, b.handleHomeCommand); err != nil {
		return fmt.Errorf("subscribe home commands: %w", err)
	}
	return nil
}

// commandPayload carries one decoded command. Action selects the hub
// call; the remaining fields mirror the hub's own parameter names and
// are read per action.
type commandPayload struct {
	Action string `json:"action"`

	On                  bool    `json:"on"`
	DimLevel            float64 `json:"dimLevel"`
	ShutterLevel        float64 `json:"shutterLevel"`
	SlatsLevel          float64 `json:"slatsLevel"`
	TargetLockState     string  `json:"targetLockState"`
	AuthorizationPin    string  `json:"authorizationPin"`
	ColorTemperature    int     `json:"colorTemperature"`
	Hue                 int     `json:"hue"`
	SaturationLevel     float64 `json:"saturationLevel"`
	SimpleRGBColorState string  `json:"simpleRGBColorState"`
	DoorCommand         string  `json:"doorCommand"`
	WateringActive      bool    `json:"wateringActive"`
	SoundFile           string  `json:"soundFile"`
	VolumeLevel         float64 `json:"volumeLevel"`
	OnTime              int     `json:"onTime"`

	SetPointTemperature float64 `json:"setPointTemperature"`
	ControlMode         string  `json:"controlMode"`
	Boost               bool    `json:"boost"`

	Temperature float64 `json:"temperature"`
	EndTime     string  `json:"endTime"`
	Internal    bool    `json:"internal"`
	External    bool    `json:"external"`
	RuleID      string  `json:"ruleId"`
	Enabled     bool    `json:"enabled"`
}

func (b *Bridge) handleDeviceCommand(topic string, payload []byte) error {
	// hculink/command/device/{deviceID}/{channelIndex}
	parts := strings.Split(topic, "/")
	if len(parts) != 5 {
		return fmt.Errorf("malformed device command topic %q", topic)
	}
	deviceID := parts[3]
	channelIndex, err := strconv.Atoi(parts[4])
	if err != nil {
		return fmt.Errorf("malformed channel index in topic %q", topic)
	}

	cmd, hub, err := b.decodeCommand(payload)
	if err != nil {
		b.logger.Warn("device command rejected", "topic", topic, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Action {
	case "setSwitchState":
		err = hub.SetSwitchState(ctx, deviceID, channelIndex, cmd.On)
	case "setDimLevel":
		err = hub.SetDimLevel(ctx, deviceID, channelIndex, cmd.DimLevel)
	case "setShutterLevel":
		err = hub.SetShutterLevel(ctx, deviceID, channelIndex, cmd.ShutterLevel)
	case "setSlatsLevel":
		err = hub.SetSlatsLevel(ctx, deviceID, channelIndex, cmd.ShutterLevel, cmd.SlatsLevel)
	case "stop":
		err = hub.Stop(ctx, deviceID, channelIndex)
	case "setLockState":
		err = hub.SetLockState(ctx, deviceID, channelIndex, cmd.TargetLockState, cmd.AuthorizationPin)
	case "setColorTemperatureDimLevel":
		err = hub.SetColorTemperatureDimLevel(ctx, deviceID, channelIndex, cmd.ColorTemperature, cmd.DimLevel)
	case "setHueSaturationDimLevel":
		err = hub.SetHueSaturationDimLevel(ctx, deviceID, channelIndex, cmd.Hue, cmd.SaturationLevel, cmd.DimLevel)
	case "setSimpleRGBColorState":
		err = hub.SetSimpleRGBColorState(ctx, deviceID, channelIndex, cmd.SimpleRGBColorState, cmd.DimLevel)
	case "sendDoorCommand":
		err = hub.SendDoorCommand(ctx, deviceID, channelIndex, cmd.DoorCommand)
	case "toggleGarageDoorState":
		err = hub.ToggleGarageDoorState(ctx, deviceID, channelIndex)
	case "setWateringSwitchState":
		err = hub.SetWateringSwitchState(ctx, deviceID, channelIndex, cmd.WateringActive)
	case "resetEnergyCounter":
		err = hub.ResetEnergyCounter(ctx, deviceID, channelIndex)
	case "playSound":
		err = hub.PlaySound(ctx, deviceID, channelIndex, cmd.SoundFile, cmd.VolumeLevel, cmd.OnTime)
	default:
		err = fmt.Errorf("unknown device action %q", cmd.Action)
	}

	return b.finishCommand(topic, cmd.Action, err)
}

func (b *Bridge) handleGroupCommand(topic string, payload []byte) error {
	// hculink/command/group/{groupID}
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return fmt.Errorf("malformed group command topic %q", topic)
	}
	groupID := parts[3]

	cmd, hub, err := b.decodeCommand(payload)
	if err != nil {
		b.logger.Warn("group command rejected", "topic", topic, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Action {
	case "setSetPointTemperature":
		err = hub.SetSetPointTemperature(ctx, groupID, cmd.SetPointTemperature)
	case "setControlMode":
		err = hub.SetControlMode(ctx, groupID, cmd.ControlMode)
	case "setBoost":
		err = hub.SetBoost(ctx, groupID, cmd.Boost)
	default:
		err = fmt.Errorf("unknown group action %q", cmd.Action)
	}

	return b.finishCommand(topic, cmd.Action, err)
}

func (b *Bridge) handleHomeCommand(topic string, payload []byte) error {
	cmd, hub, err := b.decodeCommand(payload)
	if err != nil {
		b.logger.Warn("home command rejected", "topic", topic, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Action {
	case "activateVacation":
		err = hub.ActivateVacation(ctx, cmd.Temperature, cmd.EndTime)
	case "deactivateVacation":
		err = hub.DeactivateVacation(ctx)
	case "activateAbsencePermanent":
		err = hub.ActivateAbsencePermanent(ctx)
	case "deactivateAbsence":
		err = hub.DeactivateAbsence(ctx)
	case "setExtendedZonesActivation":
		err = hub.SetExtendedZonesActivation(ctx, cmd.Internal, cmd.External)
	case "enableSimpleRule":
		err = hub.EnableSimpleRule(ctx, cmd.RuleID, cmd.Enabled)
	default:
		err = fmt.Errorf("unknown home action %q", cmd.Action)
	}

	return b.finishCommand(topic, cmd.Action, err)
}

// decodeCommand parses a command payload and resolves the live hub
// client, failing when the link is down so publishers get a rejection
// instead of a silent no-op.
func (b *Bridge) decodeCommand(payload []byte) (commandPayload, Commander, error) {
	var cmd commandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return commandPayload{}, nil, fmt.Errorf("decode command: %w", err)
	}
	if cmd.Action == "" {
		return commandPayload{}, nil, fmt.Errorf("command without action")
	}

	if b.commander == nil {
		return commandPayload{}, nil, fmt.Errorf("command path not wired")
	}
	hub := b.commander()
	if hub == nil {
		return commandPayload{}, nil, fmt.Errorf("hub link down")
	}
	return cmd, hub, nil
}

func (b *Bridge) finishCommand(topic, action string, err error) error {
	if err != nil {
		b.logger.Warn("command failed", "topic", topic, "action", action, "error", err)
		return err
	}
	b.logger.Debug("command executed", "topic", topic, "action", action)
	return nil
}
