// Package config is the JSON configuration document described in
// spec.md §3 (Config entity) and §6 (key table): upstream proxies,
// probe interval, TCP timeout, selection policy, auth toggle and user
// table, and the listener bind address.
//
// Reload is a whole-object swap, never a field-level merge: the caller
// holds an atomic.Pointer[Config] and replaces it outright on a
// successful Reload, exactly as spec.md requires ("reload is a
// whole-object swap"). The runway set itself is never rebuilt from a
// reload — reconfiguring interfaces or upstreams requires a process
// restart, because the registry's cross-product is built once in
// registry.New and handed to the rest of the daemon as a singleton.
package config
