package mirror

import (
	"sort"
	"strings"
)

// AccessPointConfig controls how the primary access point is identified
// among mirrored devices. The zero value is unusable; start from
// DefaultAccessPointConfig.
type AccessPointConfig struct {
	// HubModelPrefixes match the hub itself by model type, e.g. the
	// HmIP-HCU1 reports model type "HmIP-HCU1".
	HubModelPrefixes []string

	// AuxiliaryModelTypes are range-extender access points that must
	// never be treated as the primary.
	AuxiliaryModelTypes map[string]struct{}

	// AccessPointDeviceTypes are the device types that qualify as access
	// points at all.
	AccessPointDeviceTypes map[string]struct{}
}

func DefaultAccessPointConfig() AccessPointConfig {
	return AccessPointConfig{
		HubModelPrefixes: []string{"HmIP-HCU"},
		AuxiliaryModelTypes: map[string]struct{}{
			"HmIP-HAP":      {},
			"HmIP-WLAN-HAP": {},
			"HmIP-DRAP":     {},
		},
		AccessPointDeviceTypes: map[string]struct{}{
			"HOME_CONTROL_ACCESS_POINT":   {},
			"WIRED_ACCESS_POINT":          {},
			"ACCESS_POINT":                {},
			"WIRED_DIN_RAIL_ACCESS_POINT": {},
		},
	}
}

// PrimaryAccessPoint picks the device that represents the hub itself.
//
// Selection runs in tiers: a device whose model type carries a hub
// prefix always wins; then the home's own accessPointId reference, if it
// names a non-auxiliary device; then any access-point-typed device that
// is not an auxiliary extender. An auxiliary is chosen only when nothing
// else qualifies at all. Ties break on the lowest device ID so the
// result is stable across snapshots regardless of map order.
func PrimaryAccessPoint(devices map[string]map[string]interface{}, home map[string]interface{}, cfg AccessPointConfig) (string, bool) {
	var hubs, accessPoints, auxiliaries []string

	for id, dev := range devices {
		modelType, _ := dev["modelType"].(string)
		deviceType, _ := dev["type"].(string)

		if hasHubPrefix(modelType, cfg.HubModelPrefixes) {
			hubs = append(hubs, id)
			continue
		}
		if _, ok := cfg.AccessPointDeviceTypes[deviceType]; !ok {
			continue
		}
		if _, aux := cfg.AuxiliaryModelTypes[modelType]; aux {
			auxiliaries = append(auxiliaries, id)
			continue
		}
		accessPoints = append(accessPoints, id)
	}

	if len(hubs) > 0 {
		sort.Strings(hubs)
		return hubs[0], true
	}

	if ref, _ := home["accessPointId"].(string); ref != "" {
		if dev, ok := devices[ref]; ok {
			modelType, _ := dev["modelType"].(string)
			if _, aux := cfg.AuxiliaryModelTypes[modelType]; !aux {
				return ref, true
			}
		}
	}

	if len(accessPoints) > 0 {
		sort.Strings(accessPoints)
		return accessPoints[0], true
	}
	if len(auxiliaries) > 0 {
		sort.Strings(auxiliaries)
		return auxiliaries[0], true
	}
	return "", false
}

// AccessPointIDs returns the IDs of every access-point-typed device,
// auxiliary extenders included, sorted for stable output.
func AccessPointIDs(devices map[string]map[string]interface{}, cfg AccessPointConfig) []string {
	var ids []string
	for id, dev := range devices {
		modelType, _ := dev["modelType"].(string)
		deviceType, _ := dev["type"].(string)

		if hasHubPrefix(modelType, cfg.HubModelPrefixes) {
			ids = append(ids, id)
			continue
		}
		if _, ok := cfg.AccessPointDeviceTypes[deviceType]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func hasHubPrefix(modelType string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(modelType, prefix) {
			return true
		}
	}
	return false
}
