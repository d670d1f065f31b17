package events

import "testing"

func TestDefaultTables_Valid(t *testing.T) {
	if err := DefaultTables().validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNewClassifier_RejectsInconsistentTables(t *testing.T) {
	tables := DefaultTables()
	tables.ChannelEventOnlyTypes["ROTARY_HANDLE_CHANNEL"] = struct{}{}

	if _, err := NewClassifier(tables, mirrorStub{}, testLogger{}); err == nil {
		t.Fatal("expected error for explicit-only type missing from event channel types")
	}
}

func TestTables_MultiPurposeSwitchChannel(t *testing.T) {
	tables := DefaultTables()

	plain := map[string]interface{}{"functionalChannelType": "SWITCH_CHANNEL"}
	if tables.isButtonChannel(plain) {
		t.Error("plain switch channel classified as button")
	}

	doubleInput := map[string]interface{}{
		"functionalChannelType": "SWITCH_CHANNEL",
		"internalLinkConfiguration": map[string]interface{}{
			"internalLinkConfigurationType": "DOUBLE_INPUT_SWITCH",
		},
	}
	if !tables.isButtonChannel(doubleInput) {
		t.Error("double-input switch channel not classified as button")
	}
	if !tables.timestampEligible(doubleInput) {
		t.Error("double-input switch channel not timestamp eligible")
	}
}

// mirrorStub satisfies StateStore for construction-only tests.
type mirrorStub struct{}

func (mirrorStub) ApplyDevice(map[string]interface{}) map[string]interface{} { return nil }
func (mirrorStub) ApplyGroup(map[string]interface{}) map[string]interface{} { return nil }
func (mirrorStub) ApplyHome(map[string]interface{}) {}
func (mirrorStub) RemoveDevice(string) bool { return false }
func (mirrorStub) RemoveGroup(string) bool { return false }
func (mirrorStub) Device(string) (map[string]interface{}, bool) { return nil, false }
