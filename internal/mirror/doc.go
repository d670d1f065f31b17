// Package mirror maintains the client-side copy of the hub's system
// state.
//
// The hub sends one full snapshot at connect time and incremental object
// pushes afterwards. Pushed objects may be partial, so updates merge into
// the mirrored state rather than replacing it: nested objects merge
// key-by-key, which preserves channel fields an update did not carry.
//
// Apply methods return the object's previous state, which the event
// classifier uses to compare channel timestamps across an update. All
// reads return deep copies; the mirror's internals are never aliased.
//
// The mirror also identifies the primary access point - the device that
// represents the hub itself - which consumers need to attribute
// hub-level state such as duty cycle and carrier sensing.
package mirror
