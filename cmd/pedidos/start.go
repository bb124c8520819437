package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiendabot/pedidos/internal/bot"
	"github.com/tiendabot/pedidos/internal/config"
	"github.com/tiendabot/pedidos/internal/whatsapp"
)

var sendStartCmd = &cobra.Command{
	Use:   "send-start",
	Short: "Send the start prompt to a phone number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		phone, _ := cmd.Flags().GetString("phone")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		msg, err := bot.StartMessage(phone)
		if err != nil {
			return err
		}
		client := whatsapp.NewClient(cfg.GraphAPIVersion, cfg.WAPhoneNumberID, cfg.WAAccessToken)
		resp, err := client.Send(cmd.Context(), msg)
		if err != nil {
			return err
		}
		for _, m := range resp.Messages {
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
		}
		return nil
	},
}

func init() {
	sendStartCmd.Flags().String("phone", "", "recipient phone number in international format")
	sendStartCmd.MarkFlagRequired("phone")
	rootCmd.AddCommand(sendStartCmd)
}
