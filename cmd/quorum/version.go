package main

import (
	"fmt"
	"io"
	"runtime"
	rdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := rdebug.ReadBuildInfo()
		printVersion(cmd.OutOrStdout(), info)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// printVersion falls back to the VCS stamps the go tool embeds when the
// ldflags were not set.
func printVersion(w io.Writer, info *rdebug.BuildInfo) {
	version, commit, built := Version, GitCommit, BuildTime
	modified := false
	if info != nil {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "unknown" {
					commit = s.Value
				}
			case "vcs.time":
				if built == "unknown" {
					built = s.Value
				}
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
	}
	if modified {
		commit += " (modified)"
	}

	fmt.Fprintf(w, "QUORUM %s\n", version)
	fmt.Fprintf(w, "  Git commit: %s\n", commit)
	fmt.Fprintf(w, "  Build time: %s\n", built)
	fmt.Fprintf(w, "  Go version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
