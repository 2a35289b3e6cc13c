// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the proxy configuration structure:
// global limits (maxconn, check spread, keep-alive), connect/client/server
// timeouts, health-check thresholds and probe selection, and the set of
// listeners with their backend servers. Unknown modes, balance algorithms or
// probe types fail validation at load time.
package config
