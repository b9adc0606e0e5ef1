package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemac/schemac/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version number of schemac",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("schemac v%s@%s %s %s\n",
			version.Version(), version.GetGitCommit(), version.Platform(), version.GetBuildDate())
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
