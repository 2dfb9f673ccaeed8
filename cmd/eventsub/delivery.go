package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
)

// sampleEvents maps a subscription type to its descriptor and a sample
// event body, mirroring what the sender would deliver.
var sampleEvents = map[string]struct {
	sub   eventsub.EventSubscription
	event string
}{
	"channel.follow": {
		sub: eventsub.ChannelFollowEvent{},
		event: `{
			"user_id": "1234",
			"user_login": "cool_user",
			"user_name": "Cool_User",
			"broadcaster_user_id": "12826",
			"broadcaster_user_login": "twitch",
			"broadcaster_user_name": "Twitch",
			"followed_at": "2023-04-12T18:16:11.17106713Z"
		}`,
	},
	"channel.channel_points_custom_reward_redemption.add": {
		sub: eventsub.ChannelPointsCustomRewardRedemptionAddEvent{},
		event: `{
			"id": "17fa2df1-ad76-4804-bfa5-a40ef63efe63",
			"broadcaster_user_id": "12826",
			"broadcaster_user_login": "twitch",
			"broadcaster_user_name": "Twitch",
			"user_id": "1234",
			"user_login": "cool_user",
			"user_name": "Cool_User",
			"user_input": "pogchamp",
			"status": "unfulfilled",
			"reward": {
				"id": "92af127c-7326-4483-a52b-b0da0be61c01",
				"title": "title",
				"cost": 100,
				"prompt": "reward prompt"
			},
			"redeemed_at": "2023-04-12T18:16:11.17106713Z"
		}`,
	},
	"stream.online": {
		sub: eventsub.StreamOnlineEvent{},
		event: `{
			"id": "9001",
			"broadcaster_user_id": "12826",
			"broadcaster_user_login": "twitch",
			"broadcaster_user_name": "Twitch",
			"type": "live",
			"started_at": "2023-04-12T18:16:11.17106713Z"
		}`,
	},
}

func sampleSubscription(sub eventsub.EventSubscription, callback, status string) eventsub.Subscription {
	return eventsub.Subscription{
		ID:        uuid.New().String(),
		Status:    status,
		Type:      sub.EventType(),
		Version:   sub.EventVersion(),
		Cost:      0,
		Condition: go_json.RawMessage(`{"broadcaster_user_id":"12826"}`),
		Transport: eventsub.Transport{
			Method:   "webhook",
			Callback: callback,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// buildDelivery assembles a signed request the way the sender would.
func buildDelivery(ctx context.Context, flags *rootFlags, sub eventsub.EventSubscription, messageType eventsub.MessageType, messageID string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, flags.forwardAddress, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventsub.HeaderSubscriptionType, sub.EventType())
	req.Header.Set(eventsub.HeaderSubscriptionVersion, sub.EventVersion())
	req.Header.Set(eventsub.HeaderMessageType, string(messageType))
	req.Header.Set(eventsub.HeaderMessageID, messageID)
	req.Header.Set(eventsub.HeaderMessageTimestamp, timestamp)
	req.Header.Set(eventsub.HeaderMessageSignature,
		eventsub.Sign([]byte(flags.secret), []byte(messageID), []byte(timestamp), body))
	return req, nil
}

func sendDelivery(req *http.Request) (int, []byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("delivery failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func lookupEvent(eventType string) (eventsub.EventSubscription, string, error) {
	entry, ok := sampleEvents[eventType]
	if !ok {
		return nil, "", fmt.Errorf("unknown event type: %q", eventType)
	}
	return entry.sub, entry.event, nil
}
