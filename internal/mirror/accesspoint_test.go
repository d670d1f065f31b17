package mirror

import "testing"

func TestPrimaryAccessPoint_HubWins(t *testing.T) {
	devices := map[string]map[string]interface{}{
		"aaa": {"id": "aaa", "type": "ACCESS_POINT", "modelType": "HmIP-HAP"},
		"bbb": {"id": "bbb", "type": "HOME_CONTROL_ACCESS_POINT", "modelType": "HmIP-HCU1"},
		"ccc": {"id": "ccc", "type": "PLUGABLE_SWITCH", "modelType": "HmIP-PS"},
	}

	id, ok := PrimaryAccessPoint(devices, nil, DefaultAccessPointConfig())
	if !ok {
		t.Fatal("no primary access point found")
	}
	if id != "bbb" {
		t.Errorf("primary = %q, want bbb", id)
	}
}

func TestPrimaryAccessPoint_HomeReference(t *testing.T) {
	devices := map[string]map[string]interface{}{
		"aaa": {"id": "aaa", "type": "WIRED_ACCESS_POINT", "modelType": "HmIPW-DRAP-X"},
		"bbb": {"id": "bbb", "type": "WIRED_ACCESS_POINT", "modelType": "HmIPW-DRAP-X"},
	}
	home := map[string]interface{}{"accessPointId": "bbb"}

	id, ok := PrimaryAccessPoint(devices, home, DefaultAccessPointConfig())
	if !ok {
		t.Fatal("no primary access point found")
	}
	if id != "bbb" {
		t.Errorf("primary = %q, want home-designated bbb", id)
	}
}

func TestPrimaryAccessPoint_HomeReferenceToAuxiliaryIgnored(t *testing.T) {
	devices := map[string]map[string]interface{}{
		"aaa": {"id": "aaa", "type": "ACCESS_POINT", "modelType": "HmIP-HAP"},
		"bbb": {"id": "bbb", "type": "WIRED_ACCESS_POINT", "modelType": "HmIPW-DRAP-X"},
	}
	home := map[string]interface{}{"accessPointId": "aaa"}

	id, ok := PrimaryAccessPoint(devices, home, DefaultAccessPointConfig())
	if !ok {
		t.Fatal("no primary access point found")
	}
	if id != "bbb" {
		t.Errorf("primary = %q, want bbb (home points at an auxiliary)", id)
	}
}

func TestPrimaryAccessPoint_AuxiliaryOnlyAsLastResort(t *testing.T) {
	devices := map[string]map[string]interface{}{
		"ccc": {"id": "ccc", "type": "ACCESS_POINT", "modelType": "HmIP-HAP"},
		"bbb": {"id": "bbb", "type": "ACCESS_POINT", "modelType": "HmIP-WLAN-HAP"},
	}

	id, ok := PrimaryAccessPoint(devices, nil, DefaultAccessPointConfig())
	if !ok {
		t.Fatal("no primary access point found")
	}
	if id != "bbb" {
		t.Errorf("primary = %q, want bbb (lowest-id auxiliary fallback)", id)
	}
}

func TestPrimaryAccessPoint_NonAuxiliaryAccessPoint(t *testing.T) {
	devices := map[string]map[string]interface{}{
		"aaa": {"id": "aaa", "type": "ACCESS_POINT", "modelType": "HmIP-HAP"},
		"bbb": {"id": "bbb", "type": "WIRED_ACCESS_POINT", "modelType": "HmIPW-DRAP-X"},
	}

	id, ok := PrimaryAccessPoint(devices, nil, DefaultAccessPointConfig())
	if !ok {
		t.Fatal("no primary access point found")
	}
	if id != "bbb" {
		t.Errorf("primary = %q, want bbb", id)
	}
}

func TestPrimaryAccessPoint_LowestIDTieBreak(t *testing.T) {
	// Two equally qualified hubs: selection must not depend on map
	// iteration order.
	devices := map[string]map[string]interface{}{
		"zzz": {"id": "zzz", "modelType": "HmIP-HCU1"},
		"aaa": {"id": "aaa", "modelType": "HmIP-HCU1"},
	}

	for i := 0; i < 20; i++ {
		id, ok := PrimaryAccessPoint(devices, nil, DefaultAccessPointConfig())
		if !ok || id != "aaa" {
			t.Fatalf("primary = %q ok=%v, want aaa", id, ok)
		}
	}
}

func TestPrimaryAccessPoint_Empty(t *testing.T) {
	if id, ok := PrimaryAccessPoint(nil, nil, DefaultAccessPointConfig()); ok {
		t.Errorf("primary = %q for empty device set", id)
	}
}

func TestAccessPointIDs(t *testing.T) {
	devices := map[string]map[string]interface{}{
		"ccc": {"id": "ccc", "type": "ACCESS_POINT", "modelType": "HmIP-HAP"},
		"aaa": {"id": "aaa", "type": "HOME_CONTROL_ACCESS_POINT", "modelType": "HmIP-HCU1"},
		"bbb": {"id": "bbb", "type": "PLUGABLE_SWITCH", "modelType": "HmIP-PS"},
	}

	ids := AccessPointIDs(devices, DefaultAccessPointConfig())
	if len(ids) != 2 {
		t.Fatalf("got %d access points, want 2", len(ids))
	}
	if ids[0] != "aaa" || ids[1] != "ccc" {
		t.Errorf("ids = %v, want [aaa ccc]", ids)
	}
}

func TestMirror_PrimaryAccessPoint(t *testing.T) {
	m := New()
	m.LoadSnapshot(
		map[string]map[string]interface{}{
			"hub-1": {"id": "hub-1", "type": "HOME_CONTROL_ACCESS_POINT", "modelType": "HmIP-HCU1"},
			"aux-1": {"id": "aux-1", "type": "ACCESS_POINT", "modelType": "HmIP-HAP"},
		},
		nil,
		map[string]interface{}{"accessPointId": "hub-1"},
	)

	id, ok := m.PrimaryAccessPoint()
	if !ok || id != "hub-1" {
		t.Fatalf("PrimaryAccessPoint() = %q ok=%v, want hub-1", id, ok)
	}

	ids := m.AccessPointIDs()
	if len(ids) != 2 {
		t.Errorf("AccessPointIDs() = %v, want both access points", ids)
	}
}
