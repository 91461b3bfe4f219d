// Package nutrition is the food ledger: the food database, per-day food
// log entries, weight history, and the nutrient alert rules that run
// over daily totals.
package nutrition

import "time"

// DayFormat is the canonical date key for log entries and weights.
const DayFormat = "2006-01-02"

// Today returns the current date in DayFormat.
func Today() string {
	return time.Now().Format(DayFormat)
}

// Food is a database entry with nutrients per serving.
type Food struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand,omitempty"`
	Source        string  `json:"source"` // "usda", "custom"
	CreatedBy     string  `json:"created_by,omitempty"`
	ServingLabel  string  `json:"serving_label"`
	ServingGrams  float64 `json:"serving_grams"`
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
	FiberG        float64 `json:"fiber_g"`
	SugarG        float64 `json:"sugar_g"`
	SodiumMg      float64 `json:"sodium_mg"`
	SaturatedFatG float64 `json:"saturated_fat_g"`

	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is a logged food with nutrients already scaled by quantity.
type LogEntry struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Date         string `json:"date"` // DayFormat
	Meal         string `json:"meal"` // breakfast, lunch, dinner, snack
	FoodID       string `json:"food_id,omitempty"`
	FoodName     string `json:"food_name"`
	ServingLabel string `json:"serving_label"`
	Quantity     float64 `json:"quantity"`

	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
	FiberG        float64 `json:"fiber_g"`
	SugarG        float64 `json:"sugar_g"`
	SodiumMg      float64 `json:"sodium_mg"`
	SaturatedFatG float64 `json:"saturated_fat_g"`

	CreatedAt time.Time `json:"created_at"`
}

// WeightEntry is a single weigh-in.
type WeightEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // DayFormat
	WeightKg  float64   `json:"weight_kg"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Totals is a sum of nutrients over a set of log entries.
type Totals struct {
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
	FiberG        float64 `json:"fiber_g"`
	SugarG        float64 `json:"sugar_g"`
	SodiumMg      float64 `json:"sodium_mg"`
	SaturatedFatG float64 `json:"saturated_fat_g"`
}

// Sum adds up the nutrients of the given entries.
func Sum(entries []*LogEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.Calories += e.Calories
		t.ProteinG += e.ProteinG
		t.CarbsG += e.CarbsG
		t.FatG += e.FatG
		t.FiberG += e.FiberG
		t.SugarG += e.SugarG
		t.SodiumMg += e.SodiumMg
		t.SaturatedFatG += e.SaturatedFatG
	}
	return t
}
