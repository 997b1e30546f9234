package domain

import "time"

// ProfileConfiguration is the swappable bundle of feed state a profile holds.
type ProfileConfiguration struct {
	FeedConfigs   []FeedConfig      `json:"feedConfigs"`
	NsfwMode      NsfwMode          `json:"nsfwMode"`
	UIPreferences map[string]string `json:"uiPreferences,omitempty"`
}

// Profile is a named snapshot of feed configs and settings. At most one
// profile is current at a time.
type Profile struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	LastUsed      time.Time            `json:"lastUsed"`
	Configuration ProfileConfiguration `json:"configuration"`
}
