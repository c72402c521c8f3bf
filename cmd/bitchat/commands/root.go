// Package commands implements the bitchat CLI's subcommands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/permissionlesstech/bitchat-mesh/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "bitchat",
	Short:         "BLE mesh chat client",
	Long:          `bitchat joins a local Bluetooth LE mesh and exchanges broadcast messages with nearby peers, with no server and no internet required.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds every child command to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}
