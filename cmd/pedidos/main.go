package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pedidos",
	Short: "WhatsApp order bot",
	Long:  "Runs the WhatsApp ordering flow and the catalog editor. Without a subcommand it starts the server.",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
