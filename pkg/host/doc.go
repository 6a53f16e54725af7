// Package host is the server side of the plugin subsystem.
//
// A Server owns one script runtime, the module cache shared by source-tree
// plugins and a registry holding the archive and source loaders. Its
// PluginManager discovers units in a directory, loads them concurrently and
// drives their lifecycle:
//
//	server, err := host.NewServer(host.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//	defer server.Close()
//
//	if _, err := server.PluginManager().LoadPlugins(ctx, "./plugins"); err != nil {
//		return err
//	}
//	server.PluginManager().EnablePlugins()
//
// Commands declared in manifests are routed by the CommandMap:
//
//	err := server.Commands().Dispatch(host.NewConsoleSender(os.Stdout), "/hello world")
//
// A Watcher loads units dropped into the directory while the host runs, and
// AdminHandlers expose the loaded plugins over HTTP.
package host
