package main

import (
	"fmt"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
)

func verifyCmd(flags *rootFlags) *cobra.Command {
	var eventType string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the callback verification handshake against the forward address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sub, _, err := lookupEvent(eventType)
			if err != nil {
				return err
			}

			challenge := uuid.New().String()
			body, err := go_json.Marshal(map[string]any{
				"challenge":    challenge,
				"subscription": sampleSubscription(sub, flags.forwardAddress, "webhook_callback_verification_pending"),
			})
			if err != nil {
				return fmt.Errorf("failed to encode verification: %w", err)
			}

			messageID := uuid.New().String()
			req, err := buildDelivery(cmd.Context(), flags, sub, eventsub.MessageTypeVerification, messageID, body)
			if err != nil {
				return err
			}
			status, resp, err := sendDelivery(req)
			if err != nil {
				return err
			}
			if status != 200 {
				return fmt.Errorf("verification rejected: status %d: %s", status, resp)
			}
			if string(resp) != challenge {
				return fmt.Errorf("challenge mismatch: sent %q, got back %q", challenge, resp)
			}
			cmd.Printf("verified: %s echoed the challenge\n", flags.forwardAddress)
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventType, "event", "e", "channel.follow", "subscription type to verify")

	return cmd
}
