// Package dialer implements spec.md §4.7's connect-through-runway
// algorithm: for each candidate runway in order, up to R attempts with
// a 100ms backoff between them, either opening a direct socket bound
// to the runway's interface or chaining an HTTP CONNECT through its
// upstream proxy. The first success wins; on total failure every
// intermediate socket has already been closed and the caller never
// sees a partial connection.
package dialer
