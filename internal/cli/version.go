package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionJSON struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	f := GetCmdContext(cmd).formatterFor(cmd)
	platform := runtime.GOOS + "/" + runtime.GOARCH

	if f.IsJSON() {
		info := versionJSON{
			Version:   buildInfo.Version,
			Commit:    buildInfo.Commit,
			Date:      buildInfo.Date,
			GoVersion: runtime.Version(),
			Platform:  platform,
		}
		if info.Version == "" {
			info.Version = "dev"
		}
		return f.Print(info)
	}

	w := f.Writer()
	out(w, "timelock %s\n", formatVersion(buildInfo))
	out(w, "go: %s %s\n", runtime.Version(), platform)
	return nil
}
