// Package identity manages users, their nutrition targets, and their
// model provider configuration, and resolves callers from bearer tokens.
package identity

import (
	"time"

	"github.com/mvanders/macroai/internal/llm"
)

// Profile holds the user's physical stats.
type Profile struct {
	DisplayName   string  `json:"display_name"`
	Age           int     `json:"age,omitempty"`
	HeightCm      float64 `json:"height_cm,omitempty"`
	WeightKg      float64 `json:"weight_kg,omitempty"`
	Gender        string  `json:"gender,omitempty"`
	ActivityLevel string  `json:"activity_level"`
	Timezone      string  `json:"timezone"`
}

// Targets holds the user's daily macro goals.
type Targets struct {
	Calories int `json:"calories"`
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
	FiberG   int `json:"fiber_g"`
}

// DefaultTargets returns the targets assigned to new users.
func DefaultTargets() Targets {
	return Targets{
		Calories: 2000,
		ProteinG: 150,
		CarbsG:   200,
		FatG:     65,
		FiberG:   30,
	}
}

// AIConfig is the user's model provider configuration. The credential is
// stored as provided; at-rest encryption is handled by the credentials
// service upstream of this store.
type AIConfig struct {
	Provider string `json:"provider"` // "claude", "openai", "local", "custom"
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url,omitempty"`
}

// User is a registered caller.
type User struct {
	ID            string
	Email         string
	Profile       Profile
	Targets       Targets
	AIConfig      AIConfig
	FavoriteFoods []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Provider returns the user's AI settings as an llm.ProviderConfig.
func (u *User) Provider() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider: u.AIConfig.Provider,
		Model:    u.AIConfig.Model,
		APIKey:   u.AIConfig.APIKey,
		BaseURL:  u.AIConfig.BaseURL,
	}
}

// IsFavorite reports whether foodID is on the user's favorites list.
func (u *User) IsFavorite(foodID string) bool {
	for _, id := range u.FavoriteFoods {
		if id == foodID {
			return true
		}
	}
	return false
}
