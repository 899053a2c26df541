package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply Topology",
	Long:  `Apply Topology with Nodes list and Links list, then keep it running until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		filepath, _ := cmd.Flags().GetString("from")
		if err := manager.ApplyTopoConfig(filepath); err != nil {
			manager.Destroy()
			log.Fatal(err.Error())
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringP("from", "f", "", "Path to the topology configuration file")
}
