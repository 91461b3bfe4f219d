package tools

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/nutrition"

	_ "github.com/mattn/go-sqlite3"
)

func testRegistry(t *testing.T) (*Registry, *identity.User, *nutrition.Ledger) {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	users, err := identity.NewStore(db)
	if err != nil {
		t.Fatal(err)
	}
	ledger, err := nutrition.NewLedger(db)
	if err != nil {
		t.Fatal(err)
	}

	user, err := users.Create("test@example.com", identity.Profile{
		DisplayName: "Test", Age: 30, HeightCm: 180, WeightKg: 80,
		Gender: "male", ActivityLevel: "moderate",
	}, identity.DefaultTargets(), identity.AIConfig{})
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRegistry(users, ledger, logger), user, ledger
}

func TestExecuteUnknownTool(t *testing.T) {
	r, user, _ := testRegistry(t)

	res := r.Execute(context.Background(), user.ID, "launch_rocket", nil)
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, "unknown tool") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestExecuteMissingRequiredParam(t *testing.T) {
	r, user, _ := testRegistry(t)

	res := r.Execute(context.Background(), user.ID, "search_food_database", map[string]any{})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, "query") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestExecuteContainsPanics(t *testing.T) {
	r, user, _ := testRegistry(t)
	r.Register(&Tool{
		Name:       "explode",
		Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			panic("boom")
		},
	})

	res := r.Execute(context.Background(), user.ID, "explode", nil)
	if !res.IsError {
		t.Fatal("panic must surface as an error result")
	}
	if !strings.Contains(res.Content, "explode") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestExecuteInjectsAuthenticatedUser(t *testing.T) {
	r, user, _ := testRegistry(t)

	// A model-supplied user_id must be ignored in favor of the
	// authenticated one.
	res := r.Execute(context.Background(), user.ID, "get_user_profile",
		map[string]any{"user_id": "someone-else"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "Age: 30") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestQuickLogComputesMacros(t *testing.T) {
	r, user, ledger := testRegistry(t)
	if err := ledger.AddFood(&nutrition.Food{
		Name: "Chicken Breast", ServingGrams: 100, ServingLabel: "100g",
		Calories: 165, ProteinG: 31, FatG: 4,
	}); err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), user.ID, "quick_log",
		map[string]any{"description": "200g chicken breast", "meal": "lunch"})
	if res.IsError {
		t.Fatalf("quick_log failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, "Chicken Breast") || !strings.Contains(res.Content, "330 kcal") {
		t.Errorf("content = %q", res.Content)
	}

	entries, err := ledger.EntriesForDate(user.ID, nutrition.Today())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Meal != "lunch" || e.Quantity != 2 {
		t.Errorf("entry = %+v", e)
	}
	if e.Calories != 330 || e.ProteinG != 62 {
		t.Errorf("macros = %g kcal %g protein", e.Calories, e.ProteinG)
	}
}

func TestQuickLogUnknownFoodWritesNothing(t *testing.T) {
	r, user, ledger := testRegistry(t)

	res := r.Execute(context.Background(), user.ID, "quick_log",
		map[string]any{"description": "200g unobtainium"})
	if !res.IsError {
		t.Fatalf("expected error result for unknown food, got %q", res.Content)
	}
	if !strings.Contains(res.Content, "could not find") || !strings.Contains(res.Content, "log_food") {
		t.Errorf("content = %q", res.Content)
	}

	entries, err := ledger.EntriesForDate(user.ID, nutrition.Today())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no entry should be written, got %d", len(entries))
	}
}

func TestQuickLogRejectsBadMeal(t *testing.T) {
	r, user, _ := testRegistry(t)
	res := r.Execute(context.Background(), user.ID, "quick_log",
		map[string]any{"description": "2 eggs", "meal": "brunch"})
	if !res.IsError {
		t.Fatal("expected error for invalid meal")
	}
}

func TestLogFoodAndDailyTotals(t *testing.T) {
	r, user, _ := testRegistry(t)

	res := r.Execute(context.Background(), user.ID, "log_food", map[string]any{
		"food_name": "Protein Shake",
		"meal":      "snack",
		"calories":  float64(120),
		"protein_g": float64(24),
		"carbs_g":   float64(3),
		"fat_g":     float64(1.5),
	})
	if res.IsError {
		t.Fatalf("log_food failed: %s", res.Content)
	}

	res = r.Execute(context.Background(), user.ID, "get_daily_totals", nil)
	if res.IsError {
		t.Fatalf("get_daily_totals failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, "120 kcal") || !strings.Contains(res.Content, "24g protein") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestUpdateDailyTargets(t *testing.T) {
	r, user, _ := testRegistry(t)

	res := r.Execute(context.Background(), user.ID, "update_daily_targets", map[string]any{
		"calories":  float64(1800),
		"protein_g": float64(170),
		"carbs_g":   float64(140),
		"fat_g":     float64(60),
	})
	if res.IsError {
		t.Fatalf("update failed: %s", res.Content)
	}

	res = r.Execute(context.Background(), user.ID, "get_user_profile", nil)
	if !strings.Contains(res.Content, "Calories: 1800") || !strings.Contains(res.Content, "Protein: 170g") {
		t.Errorf("profile after update = %q", res.Content)
	}
}

func TestSearchFoodMarksFavorites(t *testing.T) {
	r, user, ledger := testRegistry(t)

	fav := &nutrition.Food{Name: "Greek Yogurt", Calories: 100, ProteinG: 17}
	if err := ledger.AddFood(fav); err != nil {
		t.Fatal(err)
	}
	if err := r.users.SetFavorites(user.ID, []string{fav.ID}); err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), user.ID, "search_food_database",
		map[string]any{"query": "yogurt"})
	if res.IsError {
		t.Fatalf("search failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, "[FAVORITE]") {
		t.Errorf("favorite not marked: %q", res.Content)
	}
}

func TestNutrientAlertsTool(t *testing.T) {
	r, user, ledger := testRegistry(t)

	for range 2 {
		if err := ledger.AddEntry(&nutrition.LogEntry{
			UserID: user.ID, FoodName: "Ramen", Meal: "dinner", SodiumMg: 1500,
		}); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Execute(context.Background(), user.ID, "get_nutrient_alerts", nil)
	if res.IsError {
		t.Fatalf("alerts failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, "[WARNING]") || !strings.Contains(res.Content, "Sodium") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestListExposesFunctionDeclarations(t *testing.T) {
	r, _, _ := testRegistry(t)

	defs := r.List()
	if len(defs) < 12 {
		t.Fatalf("tools = %d, want at least 12", len(defs))
	}
	for _, d := range defs {
		fn, ok := d["function"].(map[string]any)
		if !ok {
			t.Fatalf("malformed declaration %v", d)
		}
		params, ok := fn["parameters"].(map[string]any)
		if !ok {
			t.Fatalf("tool %v missing parameters", fn["name"])
		}
		// user_id is injected server-side and must never be advertised.
		if props, ok := params["properties"].(map[string]any); ok {
			if _, present := props["user_id"]; present {
				t.Errorf("tool %v advertises user_id", fn["name"])
			}
		}
	}
}
