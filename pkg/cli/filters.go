package cli

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
)

func newFiltersCommand() *Command {
	cmd := &Command{
		Name:        "filters",
		Description: "List the registered loaders and the file names they claim",
		Flags:       flag.NewFlagSet("filters", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(stderr)
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		return runFilters()
	}
	return cmd
}

func runFilters() error {
	server, err := newQuietServer()
	if err != nil {
		return err
	}
	defer server.Close()

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOADER\tFILTERS")
	for _, loader := range server.Registry().Loaders() {
		fmt.Fprintf(w, "%s\t%s\n", loader.Name(), strings.Join(loader.PluginFileFilters(), " "))
	}
	return w.Flush()
}
