// Package cli provides the cornerstone command-line interface.
//
// # Overview
//
// This package implements the `cornerstone` tool: it runs a plugin host, and
// inspects plugin units without running them.
//
// # Commands
//
// run: Load and enable every plugin in a directory, then serve
//
//	cornerstone run \
//		-plugins ./plugins \
//		-admin :9090 \
//		-watch
//
// Lines read from standard input are dispatched as commands; "stop" shuts
// the host down, as do SIGINT and SIGTERM. Flags override the CORNERSTONE_*
// environment variables read by the config package.
//
// inspect: Print the manifest of an archive or source tree as YAML
//
//	cornerstone inspect ./plugins/hello.zip
//	cornerstone inspect -json ./plugins/greeter
//
// filters: List each loader and the file name patterns it claims
//
//	cornerstone filters
//
// # Related Packages
//
//   - pkg/host: Plugin manager, command dispatch and admin API
//   - pkg/config: Environment configuration
//   - pkg/observability: Logging, metrics and tracing
package cli
