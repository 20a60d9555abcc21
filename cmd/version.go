package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antoinerrr/ssh-ecs/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.GetBuildInfo()
		fmt.Println(bold("\n── ssh-ecs Build Information ──"))
		fmt.Printf("  %s:    %s\n", faint("Version"), info.Version)
		fmt.Printf("  %s:     %s\n", faint("Commit"), info.CommitHash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
