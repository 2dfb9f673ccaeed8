package eventsub

import "time"

// ChannelPointsCustomRewardRedemptionAddEvent is sent when a viewer redeems
// a custom channel points reward.
type ChannelPointsCustomRewardRedemptionAddEvent struct {
	ID                   string `json:"id"`
	BroadcasterUserID    string `json:"broadcaster_user_id"`
	BroadcasterUserLogin string `json:"broadcaster_user_login"`
	BroadcasterUserName  string `json:"broadcaster_user_name"`
	UserID               string `json:"user_id"`
	UserLogin            string `json:"user_login"`
	UserName             string `json:"user_name"`
	UserInput            string `json:"user_input"`
	Status               string `json:"status"`
	Reward               Reward `json:"reward"`
	RedeemedAt           string `json:"redeemed_at"`
}

// Reward is the redeemed reward's definition.
type Reward struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Cost   int64  `json:"cost"`
	Prompt string `json:"prompt"`
}

func (ChannelPointsCustomRewardRedemptionAddEvent) EventType() string {
	return "channel.channel_points_custom_reward_redemption.add"
}
func (ChannelPointsCustomRewardRedemptionAddEvent) EventVersion() string { return "1" }

// ChannelFollowEvent is sent when a viewer follows the broadcaster.
type ChannelFollowEvent struct {
	UserID               string    `json:"user_id"`
	UserLogin            string    `json:"user_login"`
	UserName             string    `json:"user_name"`
	BroadcasterUserID    string    `json:"broadcaster_user_id"`
	BroadcasterUserLogin string    `json:"broadcaster_user_login"`
	BroadcasterUserName  string    `json:"broadcaster_user_name"`
	FollowedAt           time.Time `json:"followed_at"`
}

func (ChannelFollowEvent) EventType() string    { return "channel.follow" }
func (ChannelFollowEvent) EventVersion() string { return "2" }

// StreamOnlineEvent is sent when the broadcaster goes live.
type StreamOnlineEvent struct {
	ID                   string    `json:"id"`
	BroadcasterUserID    string    `json:"broadcaster_user_id"`
	BroadcasterUserLogin string    `json:"broadcaster_user_login"`
	BroadcasterUserName  string    `json:"broadcaster_user_name"`
	Type                 string    `json:"type"`
	StartedAt            time.Time `json:"started_at"`
}

func (StreamOnlineEvent) EventType() string    { return "stream.online" }
func (StreamOnlineEvent) EventVersion() string { return "1" }
