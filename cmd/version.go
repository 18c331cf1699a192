package cmd

import (
	"github.com/spf13/cobra"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the application version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(constants.ProgramIdentifier, constants.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
