package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version is overridden at link time with -ldflags "-X .../cmd.version=v1.2.3".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pimsim version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	name := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s (%s/%s, %s)\n", name("pimsim"), v, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
