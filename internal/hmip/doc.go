// Package hmip implements the local plugin API of a Homematic IP Home
// Control Unit over a persistent WebSocket.
//
// The hub multiplexes two kinds of traffic on one socket: request/response
// pairs (HMIP_SYSTEM_REQUEST / HMIP_SYSTEM_RESPONSE, matched by frame ID)
// and unsolicited push events (HMIP_SYSTEM_EVENT). The Client hides the
// multiplexing: Request behaves like a blocking RPC, and push events are
// delivered to a registered callback in hub order.
//
// Key behaviors:
//   - All writes are serialized; reads happen on a single loop.
//   - Responses resolve pending requests via a correlator; requests that
//     receive no response fail with ErrRequestTimeout.
//   - Push events flow through a bounded queue into a single dispatcher
//     goroutine. When the consumer falls behind, the read loop blocks on
//     the queue: backpressure reaches the socket instead of losing state
//     deltas, and the idle deadline eventually kills a wedged session.
//   - Liveness is enforced with WebSocket pings and an idle read deadline.
//     A silent socket surfaces as ErrConnectionLost, which fails all
//     in-flight requests.
//
// A Client is single-use: once its Done channel closes it must be
// replaced. Reconnection policy lives in the supervisor package.
package hmip
