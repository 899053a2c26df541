package cmd

import (
	"github.com/spf13/cobra"

	"Vnet/pkg"
)

var manager *pkg.Manager

var rootCmd = &cobra.Command{
	Use:   "vnet",
	Short: "vnet Management CLI",
	Long:  "A command-line tool for building emulated network topologies.",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(m *pkg.Manager) error {
	manager = m
	return rootCmd.Execute()
}
