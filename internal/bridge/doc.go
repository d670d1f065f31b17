// Package bridge fans hub activity out to the export surfaces.
//
// Device, group and home state goes to retained MQTT topics so consumers
// always find the latest values. Button occurrences go to non-retained
// event topics, to the SQLite occurrence log, and to the metrics store.
// Numeric channel readings (temperature, power, humidity and friends) are
// exported as channel metrics on every update that carries them.
//
// After a reconnect the bridge republishes everything from the fresh
// snapshot, since retained messages may have gone stale during the
// outage. Link transitions themselves are published retained on the
// system link topic.
package bridge
