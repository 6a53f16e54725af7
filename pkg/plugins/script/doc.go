// Package script hosts third-party plugin code on an embedded Lua VM.
//
// # Overview
//
// A Runtime owns a single gopher-lua state and serializes every call into it.
// Code is organised in modules addressed by dotted names ("a.b"). A module is
// either a package (a/b/init.lua) or a plain file (a/b.lua). Modules are
// resolved through a Namespace:
//
//   - ArchiveNamespace: an in-memory zip archive with its own module cache
//   - SourceNamespace: a directory on disk sharing a process-wide ModuleCache
//
// Module code sees a private environment whose require() resolves through the
// namespace that loaded it, falling back to package.loaded for the Lua
// standard library.
//
// # Usage Example
//
//	rt := script.NewRuntime()
//	defer rt.Close()
//
//	cache := script.NewModuleCache()
//	ns := script.NewSourceNamespace("/plugins/hello", cache)
//
//	err := rt.Do(ctx, func(L *lua.LState) error {
//		mod, err := ns.Import(L, "hello")
//		if err != nil {
//			return err
//		}
//		obj, err := script.Instantiate(L, L.GetField(mod.Exports, "HelloPlugin"))
//		...
//	})
package script
