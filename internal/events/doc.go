// Package events turns raw hub push transactions into state updates and
// button occurrences.
//
// The hub reports presses two ways. Newer stateless devices send explicit
// DEVICE_CHANNEL_EVENT frames carrying the press type (short, long, long
// start/repeat/stop). Older devices only bump a button channel's
// lastStatusUpdate inside a DEVICE_CHANGED push, so presses on them are
// inferred by comparing the timestamp before and after the merge.
//
// Both paths run per transaction, with explicit events taking precedence:
// a channel that produced an explicit event is suppressed from timestamp
// detection so one physical press never becomes two occurrences. Channel
// types listed in Tables.ChannelEventOnlyTypes are never
// timestamp-detected at all, because their timestamps move for non-press
// reasons. The classification tables are passed to NewClassifier rather
// than read from package globals.
package events
