// Package supervisor owns the hub connection lifecycle.
//
// A session moves through CONNECTING, SNAPSHOT_LOADING and LISTENING; on
// loss the supervisor resets the state mirror, enters RECONNECTING, and
// retries with exponential backoff (doubling from the initial delay up to
// a ceiling, plus random jitter). Sessions are single-use, so every
// attempt gets a fresh client from the factory.
//
// Because the hub replays nothing, events missed during an outage are
// simply gone. Each successful (re)connect therefore loads a full
// snapshot and invokes the OnSnapshot callback so consumers can
// re-publish authoritative state.
package supervisor
