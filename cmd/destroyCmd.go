package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy Topology",
	Long:  `Remove the containers and bridges a topology file names.`,
	Run: func(cmd *cobra.Command, args []string) {
		filepath, _ := cmd.Flags().GetString("from")
		if err := manager.DestroyTopoConfig(filepath); err != nil {
			log.Fatal(err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
	destroyCmd.Flags().StringP("from", "f", "", "Path to the topology configuration file")
}
