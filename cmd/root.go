/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "presenze",
	Short: "Badge check-in/check-out backend",
	Long: `presenze is the backend for the badge access-logging system:
users identified by an EAN-13 barcode and a log of CHECKIN/CHECKOUT
events per badge, with change notifications and a presence report
export.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
