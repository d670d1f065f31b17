package hmip

// REST-style paths tunnelled through HMIP_SYSTEM_REQUEST frames.
//
// The hub exposes its local API over the plugin WebSocket: each request
// frame carries one of these paths plus a JSON body, and the hub answers
// with a matching HMIP_SYSTEM_RESPONSE frame.
const (
	// PathGetSystemState returns the full device/group/home snapshot.
	PathGetSystemState = "/hmip/home/getSystemState"

	// Device control paths. Bodies carry deviceId and channelIndex.
	PathSetSwitchState              = "/hmip/device/control/setSwitchState"
	PathSetDimLevel                 = "/hmip/device/control/setDimLevel"
	PathSetShutterLevel             = "/hmip/device/control/setShutterLevel"
	PathSetSlatsLevel               = "/hmip/device/control/setSlatsLevel"
	PathStop                        = "/hmip/device/control/stop"
	PathSetLockState                = "/hmip/device/control/setLockState"
	PathSetColorTemperatureDimLevel = "/hmip/device/control/setColorTemperatureDimLevel"
	PathSetHueSaturationDimLevel    = "/hmip/device/control/setHueSaturationDimLevel"
	PathSetSimpleRGBColorState      = "/hmip/device/control/setSimpleRGBColorState"
	PathSendDoorCommand             = "/hmip/device/control/sendDoorCommand"
	PathToggleGarageDoorState       = "/hmip/device/control/toggleGarageDoorState"
	PathSetWateringSwitchState      = "/hmip/device/control/setWateringSwitchState"
	PathResetEnergyCounter          = "/hmip/device/control/resetEnergyCounter"
	PathPlaySound                   = "/hmip/device/control/setSoundFileVolumeLevelWithTime"

	// Heating group paths. Bodies carry groupId.
	PathSetSetPointTemperature = "/hmip/group/heating/setSetPointTemperature"
	PathSetControlMode         = "/hmip/group/heating/setControlMode"
	PathSetBoost               = "/hmip/group/heating/setBoost"

	// Home-level paths.
	PathActivateVacation           = "/hmip/home/heating/activateVacation"
	PathDeactivateVacation         = "/hmip/home/heating/deactivateVacation"
	PathActivateAbsencePermanent   = "/hmip/home/heating/activateAbsencePermanent"
	PathDeactivateAbsence          = "/hmip/home/heating/deactivateAbsence"
	PathSetExtendedZonesActivation = "/hmip/home/security/setExtendedZonesActivation"

	// Automation paths.
	PathEnableSimpleRule = "/hmip/rule/enableSimpleRule"
)
