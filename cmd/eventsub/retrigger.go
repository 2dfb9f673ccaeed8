package main

import (
	"github.com/spf13/cobra"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
)

func retriggerCmd(flags *rootFlags) *cobra.Command {
	var (
		eventType string
		messageID string
	)

	cmd := &cobra.Command{
		Use:   "retrigger",
		Short: "Resend a notification with a fixed message id",
		Long: `Resend a notification reusing a message id, as the sender does when a
delivery was not acknowledged. A receiver with replay protection should
accept the first delivery and drop the rest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sub, event, err := lookupEvent(eventType)
			if err != nil {
				return err
			}

			body, err := notificationBody(sub, flags.forwardAddress, event)
			if err != nil {
				return err
			}

			req, err := buildDelivery(cmd.Context(), flags, sub, eventsub.MessageTypeNotification, messageID, body)
			if err != nil {
				return err
			}
			status, resp, err := sendDelivery(req)
			if err != nil {
				return err
			}
			cmd.Printf("%s -> %d %s\n", messageID, status, resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventType, "event", "e", "channel.follow", "subscription type to deliver")
	cmd.Flags().StringVarP(&messageID, "id", "i", "", "message id to reuse")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
