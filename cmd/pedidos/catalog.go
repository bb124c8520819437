package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiendabot/pedidos/internal/catalog"
	"github.com/tiendabot/pedidos/internal/config"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the catalog document",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the catalog as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			path = cfg.CatalogPath
		}

		c, err := catalog.NewFileStore(path).Load(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

func init() {
	catalogShowCmd.Flags().String("path", "", "catalog file (defaults to CATALOG_PATH)")
	catalogCmd.AddCommand(catalogShowCmd)
	rootCmd.AddCommand(catalogCmd)
}
