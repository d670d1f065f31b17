// Package history stores classified button occurrences in SQLite.
//
// The hub itself keeps no press history, so this local log is the only
// record of when buttons were pressed. Rows are written as presses are
// classified and pruned on a retention window; the HTTP API serves them
// per device and channel.
package history
