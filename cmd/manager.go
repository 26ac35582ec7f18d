/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/presenze/apiserver/config"
	"github.com/presenze/apiserver/internal/db"
	"github.com/presenze/apiserver/internal/services"
	"github.com/presenze/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// managerCmd represents the manager command.
var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Administer staff accounts",
}

var managerActivateCmd = &cobra.Command{
	Use:   "activate <username>",
	Short: "Activate a registered staff account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect to database failed: %w", err)
		}
		defer func() {
			_ = dbConn.Close()
		}()

		svc := services.NewManagerService(store.NewManagerRepository(dbConn))
		if err := svc.Activate(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("activate %q failed: %w", args[0], err)
		}
		fmt.Printf("manager %q activated\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(managerCmd)
	managerCmd.AddCommand(managerActivateCmd)
}
