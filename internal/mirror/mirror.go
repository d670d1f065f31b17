package mirror

import "sync"

// Mirror holds the client-side copy of the hub's system state: devices
// and groups keyed by ID plus the home object. Writes come from the
// snapshot load and from push events; reads return deep copies so callers
// can never alias internal state.
type Mirror struct {
	apCfg AccessPointConfig

	mu      sync.RWMutex
	devices map[string]map[string]interface{}
	groups  map[string]map[string]interface{}
	home    map[string]interface{}
	loaded  bool
}

// New builds a mirror using the default access point rules.
func New() *Mirror {
	return NewWithConfig(DefaultAccessPointConfig())
}

// NewWithConfig builds a mirror with explicit access point rules. The
// rules are fixed for the mirror's lifetime.
func NewWithConfig(cfg AccessPointConfig) *Mirror {
	return &Mirror{
		apCfg:   cfg,
		devices: make(map[string]map[string]interface{}),
		groups:  make(map[string]map[string]interface{}),
		home:    make(map[string]interface{}),
	}
}

// LoadSnapshot replaces the entire mirror with a fresh system state. Any
// state accumulated from earlier events is discarded.
func (m *Mirror) LoadSnapshot(devices, groups map[string]map[string]interface{}, home map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices = make(map[string]map[string]interface{}, len(devices))
	for id, dev := range devices {
		m.devices[id] = copyObject(dev)
	}
	m.groups = make(map[string]map[string]interface{}, len(groups))
	for id, grp := range groups {
		m.groups[id] = copyObject(grp)
	}
	m.home = copyObject(home)
	m.loaded = true
}

// Reset discards all state, returning the mirror to its unloaded
// condition. Called when the connection drops so stale state cannot be
// served across a reconnect.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices = make(map[string]map[string]interface{})
	m.groups = make(map[string]map[string]interface{})
	m.home = make(map[string]interface{})
	m.loaded = false
}

// Loaded reports whether a snapshot has been applied since the last Reset.
func (m *Mirror) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// ApplyDevice merges a pushed device object into the mirror and returns a
// deep copy of the device's previous state, or nil if the device was
// unknown. Nested objects merge key-by-key, so a partial update cannot
// erase fields the push did not carry.
func (m *Mirror) ApplyDevice(device map[string]interface{}) map[string]interface{} {
	id, ok := objectID(device)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var previous map[string]interface{}
	existing, known := m.devices[id]
	if known {
		previous = copyObject(existing)
		mergeObject(existing, device)
	} else {
		m.devices[id] = copyObject(device)
	}
	return previous
}

// ApplyGroup merges a pushed group object, returning the previous state
// like ApplyDevice.
func (m *Mirror) ApplyGroup(group map[string]interface{}) map[string]interface{} {
	id, ok := objectID(group)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var previous map[string]interface{}
	existing, known := m.groups[id]
	if known {
		previous = copyObject(existing)
		mergeObject(existing, group)
	} else {
		m.groups[id] = copyObject(group)
	}
	return previous
}

// ApplyHome merges a pushed home object into the mirror.
func (m *Mirror) ApplyHome(home map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mergeObject(m.home, home)
}

// RemoveDevice deletes a device from the mirror. Returns true when the
// device was present.
func (m *Mirror) RemoveDevice(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.devices[id]
	delete(m.devices, id)
	return ok
}

// RemoveGroup deletes a group from the mirror.
func (m *Mirror) RemoveGroup(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.groups[id]
	delete(m.groups, id)
	return ok
}

// Device returns a deep copy of one device.
func (m *Mirror) Device(id string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dev, ok := m.devices[id]
	if !ok {
		return nil, false
	}
	return copyObject(dev), true
}

// Group returns a deep copy of one group.
func (m *Mirror) Group(id string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grp, ok := m.groups[id]
	if !ok {
		return nil, false
	}
	return copyObject(grp), true
}

// Home returns a deep copy of the home object.
func (m *Mirror) Home() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyObject(m.home)
}

// Devices returns a deep copy of all devices keyed by ID.
func (m *Mirror) Devices() map[string]map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[string]interface{}, len(m.devices))
	for id, dev := range m.devices {
		out[id] = copyObject(dev)
	}
	return out
}

// Groups returns a deep copy of all groups keyed by ID.
func (m *Mirror) Groups() map[string]map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[string]interface{}, len(m.groups))
	for id, grp := range m.groups {
		out[id] = copyObject(grp)
	}
	return out
}

// PrimaryAccessPoint resolves the device representing the hub itself
// from the current device set. Resolved on demand so it can never go
// stale as devices come and go.
func (m *Mirror) PrimaryAccessPoint() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return PrimaryAccessPoint(m.devices, m.home, m.apCfg)
}

// AccessPointIDs returns the ids of every access-point-typed device,
// auxiliaries included.
func (m *Mirror) AccessPointIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return AccessPointIDs(m.devices, m.apCfg)
}

// Counts reports the number of mirrored devices and groups.
func (m *Mirror) Counts() (devices, groups int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices), len(m.groups)
}

func objectID(obj map[string]interface{}) (string, bool) {
	id, ok := obj["id"].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
