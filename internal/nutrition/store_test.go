package nutrition

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	l, err := NewLedger(db)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestAddFoodDefaults(t *testing.T) {
	l := openTestLedger(t)

	f := &Food{Name: "Chicken Breast", Calories: 165, ProteinG: 31}
	if err := l.AddFood(f); err != nil {
		t.Fatalf("AddFood: %v", err)
	}
	if f.ID == "" {
		t.Error("id not assigned")
	}
	if f.ServingLabel != "100g" || f.ServingGrams != 100 {
		t.Errorf("serving defaults = %q %g", f.ServingLabel, f.ServingGrams)
	}
	if f.Source != "custom" {
		t.Errorf("source = %q", f.Source)
	}
}

func TestSearchFoods(t *testing.T) {
	l := openTestLedger(t)
	for _, f := range []*Food{
		{Name: "Chicken Breast", Calories: 165},
		{Name: "Chicken Breast Tenderloins Breaded", Calories: 220},
		{Name: "Beef Steak", Calories: 250},
	} {
		if err := l.AddFood(f); err != nil {
			t.Fatal(err)
		}
	}

	foods, err := l.SearchFoods("chicken breast", 10)
	if err != nil {
		t.Fatalf("SearchFoods: %v", err)
	}
	if len(foods) != 2 {
		t.Fatalf("results = %d, want 2", len(foods))
	}
	// Shortest name first so the plain food beats composites.
	if foods[0].Name != "Chicken Breast" {
		t.Errorf("first result = %q", foods[0].Name)
	}

	foods, err = l.SearchFoods("tofu", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(foods) != 0 {
		t.Errorf("expected no results, got %d", len(foods))
	}

	// A blank query matches nothing rather than everything.
	foods, err = l.SearchFoods("   ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(foods) != 0 {
		t.Errorf("blank query returned %d foods", len(foods))
	}
}

func TestFoodsUnderCalories(t *testing.T) {
	l := openTestLedger(t)
	for _, f := range []*Food{
		{Name: "Rice", Calories: 130, ProteinG: 2.7},
		{Name: "Chicken Breast", Calories: 165, ProteinG: 31},
		{Name: "Burger", Calories: 550, ProteinG: 25},
	} {
		if err := l.AddFood(f); err != nil {
			t.Fatal(err)
		}
	}

	foods, err := l.FoodsUnderCalories(200, 10)
	if err != nil {
		t.Fatalf("FoodsUnderCalories: %v", err)
	}
	if len(foods) != 2 {
		t.Fatalf("results = %d, want 2", len(foods))
	}
	if foods[0].Name != "Chicken Breast" {
		t.Errorf("highest protein first, got %q", foods[0].Name)
	}
}

func TestLogEntriesAndTotals(t *testing.T) {
	l := openTestLedger(t)

	entries := []*LogEntry{
		{UserID: "u1", Date: "2026-08-28", Meal: "breakfast", FoodName: "Oats", Calories: 152, ProteinG: 5, FiberG: 4},
		{UserID: "u1", Date: "2026-08-28", Meal: "lunch", FoodName: "Chicken", Calories: 330, ProteinG: 62},
		{UserID: "u1", Date: "2026-08-27", Meal: "dinner", FoodName: "Salmon", Calories: 208, ProteinG: 20},
		{UserID: "u2", Date: "2026-08-28", Meal: "lunch", FoodName: "Burger", Calories: 550},
	}
	for _, e := range entries {
		if err := l.AddEntry(e); err != nil {
			t.Fatal(err)
		}
	}

	day, err := l.EntriesForDate("u1", "2026-08-28")
	if err != nil {
		t.Fatalf("EntriesForDate: %v", err)
	}
	if len(day) != 2 {
		t.Fatalf("entries = %d, want 2", len(day))
	}

	totals, err := l.DailyTotals("u1", "2026-08-28")
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if totals.Calories != 482 {
		t.Errorf("calories = %g, want 482", totals.Calories)
	}
	if totals.ProteinG != 67 {
		t.Errorf("protein = %g, want 67", totals.ProteinG)
	}

	week, err := l.EntriesBetween("u1", "2026-08-22", "2026-08-28")
	if err != nil {
		t.Fatal(err)
	}
	if len(week) != 3 {
		t.Errorf("week entries = %d, want 3", len(week))
	}
}

func TestAddEntryDefaults(t *testing.T) {
	l := openTestLedger(t)
	e := &LogEntry{UserID: "u1", FoodName: "Apple", Calories: 95}
	if err := l.AddEntry(e); err != nil {
		t.Fatal(err)
	}
	if e.Date != Today() {
		t.Errorf("date = %q, want today", e.Date)
	}
	if e.Meal != "snack" {
		t.Errorf("meal = %q, want snack", e.Meal)
	}
}

func TestWeights(t *testing.T) {
	l := openTestLedger(t)
	for _, w := range []*WeightEntry{
		{UserID: "u1", Date: "2026-08-20", WeightKg: 81.2},
		{UserID: "u1", Date: "2026-08-27", WeightKg: 80.4},
		{UserID: "u2", Date: "2026-08-27", WeightKg: 95.0},
	} {
		if err := l.AddWeight(w); err != nil {
			t.Fatal(err)
		}
	}

	weights, err := l.WeightsBetween("u1", "2026-08-14", "2026-08-28")
	if err != nil {
		t.Fatalf("WeightsBetween: %v", err)
	}
	if len(weights) != 2 {
		t.Fatalf("weights = %d, want 2", len(weights))
	}
	if weights[0].Date != "2026-08-20" {
		t.Errorf("oldest first, got %s", weights[0].Date)
	}
}

func TestSeedIdempotent(t *testing.T) {
	l := openTestLedger(t)

	n, err := l.Seed()
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n == 0 {
		t.Fatal("expected foods inserted on empty database")
	}

	again, err := l.Seed()
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second seed inserted %d foods", again)
	}
}
