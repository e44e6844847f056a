package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time. Unset values fall back to the module
// and VCS info embedded by the Go toolchain.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type buildVersion struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bi, ok := debug.ReadBuildInfo()
		v := resolveVersion(bi, ok)

		if JSONOutput() {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		fmt.Printf("muffle %s\n", v.Version)
		if Verbose() {
			commit := v.Commit
			if v.Modified {
				commit += " (modified)"
			}
			fmt.Printf("  commit:     %s\n", commit)
			fmt.Printf("  built:      %s\n", v.BuildDate)
			fmt.Printf("  go version: %s\n", v.GoVersion)
			fmt.Printf("  platform:   %s/%s\n", v.OS, v.Arch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveVersion prefers ldflags values and fills the rest from bi.
func resolveVersion(bi *debug.BuildInfo, ok bool) buildVersion {
	v := buildVersion{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if !ok || bi == nil {
		return v
	}

	if v.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}
	if bi.GoVersion != "" {
		v.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "unknown" {
				v.Commit = s.Value
				if len(v.Commit) > 12 {
					v.Commit = v.Commit[:12]
				}
			}
		case "vcs.time":
			if v.BuildDate == "unknown" {
				v.BuildDate = s.Value
			}
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}
