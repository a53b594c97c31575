// Command smartproxy is the daemon's entry point. It loads
// config.json, builds the runway registry from the host's interfaces
// and configured upstreams, and runs the client-facing SOCKS5/HTTP
// CONNECT listener and the reachability prober under one errgroup,
// with the HTTP control-plane API served alongside them from its own
// goroutine. SIGINT/SIGTERM stop all three before the process exits.
package main
