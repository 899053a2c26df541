package cmd

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show Resources",
	Long:  `Show the nodes or links of the topology.`,
	Run: func(cmd *cobra.Command, args []string) {
		class := cmd.Flag("class").Value.String()
		switch class {
		case "nodes":
			manager.ShowNodes()
		case "links":
			manager.ShowLinks()
		default:
			print("Invalid class")
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().String("class", "nodes", "Class of the element to show")
}
