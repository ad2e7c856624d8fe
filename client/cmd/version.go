package cmd

import (
	"github.com/spf13/cobra"

	"github.com/asarsync/asarsync/version"
)

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "prints asarsync version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.Println(version.AgentVersion())
		},
	}
)
