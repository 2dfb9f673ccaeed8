package main

import (
	"fmt"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
)

func triggerCmd(flags *rootFlags) *cobra.Command {
	var (
		eventType string
		eventID   string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send a signed notification to the forward address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sub, event, err := lookupEvent(eventType)
			if err != nil {
				return err
			}

			body, err := notificationBody(sub, flags.forwardAddress, event)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			for i := 0; i < count; i++ {
				messageID := eventID
				if messageID == "" {
					messageID = uuid.New().String()
				}
				g.Go(func() error {
					req, err := buildDelivery(ctx, flags, sub, eventsub.MessageTypeNotification, messageID, body)
					if err != nil {
						return err
					}
					status, resp, err := sendDelivery(req)
					if err != nil {
						return err
					}
					cmd.Printf("%s -> %d %s\n", messageID, status, resp)
					return nil
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&eventType, "event", "e", "channel.follow", "subscription type to deliver")
	cmd.Flags().StringVar(&eventID, "event-id", "", "message id to send (default a fresh uuid per delivery)")
	cmd.Flags().IntVarP(&count, "count", "c", 1, "number of concurrent deliveries")

	return cmd
}

func notificationBody(sub eventsub.EventSubscription, callback, event string) ([]byte, error) {
	body, err := go_json.Marshal(map[string]any{
		"subscription": sampleSubscription(sub, callback, "enabled"),
		"event":        go_json.RawMessage(event),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	return body, nil
}
