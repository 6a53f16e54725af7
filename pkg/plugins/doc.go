// Package plugins loads third-party plugins into the host and manages their lifecycle.
//
// # Overview
//
// A plugin unit is either a zip archive or a source directory. Both carry a
// plugin.toml manifest naming the plugin, its version and its entry point
// ("module.Type"). Plugin code is Lua, executed by the runtime in
// pkg/plugins/script.
//
// # Plugin Units
//
// Archive (ArchiveLoader, files matching \.zip$ or \.plugin$):
//
//	hello.zip
//	├── plugin.toml
//	└── hello.lua
//
// Source tree (SourceLoader, files named plugin.toml):
//
//	plugins/hello/
//	├── plugin.toml
//	└── hello/
//	    └── init.lua
//
// Manifest:
//
//	name = "Hello"
//	version = "1.0"
//	main = "hello.HelloPlugin"
//
// Entry point:
//
//	local HelloPlugin = {}
//
//	function HelloPlugin:on_load() end
//	function HelloPlugin:on_enable() self.logger:info("hi") end
//	function HelloPlugin:on_disable() end
//	function HelloPlugin:on_command(sender, command, label, args)
//		sender:send_message("hello")
//		return true
//	end
//
//	return { HelloPlugin = HelloPlugin }
//
// # Loading
//
//	rt := script.NewRuntime()
//	registry := plugins.NewRegistry()
//	registry.Register(plugins.NewArchiveLoader(server, rt))
//	registry.Register(plugins.NewSourceLoader(server, rt, script.NewModuleCache()))
//
//	loader, ok := registry.Match(path)
//	inst, err := loader.LoadPlugin(ctx, path)
//	if errors.Is(err, plugins.ErrModuleResolution) {
//		...
//	}
//	loader.EnablePlugin(inst)
//
// # Errors
//
// LoadPlugin only returns *Error values of KindLoad. The underlying failure
// stays in the chain and can be matched with errors.Is against ErrManifest,
// ErrModuleResolution, ErrCapabilityMismatch and friends.
//
// # Related Packages
//
//   - pkg/plugins/script: Lua runtime, namespaces and module cache
//   - pkg/host: plugin discovery, commands and the admin API
package plugins
