package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/nutrition"
)

var validMeals = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

func (r *Registry) registerWriteTools() {
	nutrientProps := map[string]any{
		"fiber_g":         map[string]any{"type": "number", "description": "Fiber in grams"},
		"sugar_g":         map[string]any{"type": "number", "description": "Sugar in grams"},
		"sodium_mg":       map[string]any{"type": "number", "description": "Sodium in milligrams"},
		"saturated_fat_g": map[string]any{"type": "number", "description": "Saturated fat in grams"},
	}

	logFoodProps := map[string]any{
		"food_name":     map[string]any{"type": "string", "description": "Name of the food"},
		"meal":          map[string]any{"type": "string", "description": "One of: breakfast, lunch, dinner, snack"},
		"calories":      map[string]any{"type": "number", "description": "Calories for the logged portion"},
		"protein_g":     map[string]any{"type": "number", "description": "Protein in grams"},
		"carbs_g":       map[string]any{"type": "number", "description": "Carbohydrates in grams"},
		"fat_g":         map[string]any{"type": "number", "description": "Fat in grams"},
		"serving_label": map[string]any{"type": "string", "description": "Portion description, default '1 serving'"},
		"quantity":      map[string]any{"type": "number", "description": "Number of servings, default 1"},
	}
	for k, v := range nutrientProps {
		logFoodProps[k] = v
	}

	r.Register(&Tool{
		Name:        "log_food",
		Description: "Log a food entry for the user. Meal must be: breakfast, lunch, dinner, or snack. Include fiber, sugar, sodium, and saturated fat when known.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": logFoodProps,
			"required":   []string{"food_name", "meal", "calories", "protein_g", "carbs_g", "fat_g"},
		},
		InjectUser: true,
		Handler:    r.handleLogFood,
	})

	r.Register(&Tool{
		Name: "quick_log",
		Description: "Log food from a natural language description like '200g chicken breast' or '2 eggs'. " +
			"Searches the food database, calculates macros from the quantity, and logs it. " +
			"Meal must be: breakfast, lunch, dinner, or snack. " +
			"If the food is not found in the database, an error is returned; do not guess macros.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{
					"type":        "string",
					"description": "Natural language food description with optional quantity",
				},
				"meal": map[string]any{
					"type":        "string",
					"description": "One of: breakfast, lunch, dinner, snack. Default snack.",
				},
			},
			"required": []string{"description"},
		},
		InjectUser: true,
		Handler:    r.handleQuickLog,
	})

	r.Register(&Tool{
		Name:        "update_daily_targets",
		Description: "Update the user's daily macro targets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"calories":  map[string]any{"type": "integer", "description": "Daily calorie target"},
				"protein_g": map[string]any{"type": "integer", "description": "Daily protein target in grams"},
				"carbs_g":   map[string]any{"type": "integer", "description": "Daily carb target in grams"},
				"fat_g":     map[string]any{"type": "integer", "description": "Daily fat target in grams"},
			},
			"required": []string{"calories", "protein_g", "carbs_g", "fat_g"},
		},
		InjectUser: true,
		Handler:    r.handleUpdateDailyTargets,
	})

	r.Register(&Tool{
		Name: "suggest_meals",
		Description: "Suggest foods that fit the user's remaining macro budget for the day. " +
			"Returns foods sorted by protein density. Call get_daily_totals first to know how much budget remains.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of suggestions (default 5)",
				},
			},
		},
		InjectUser: true,
		Handler:    r.handleSuggestMeals,
	})
}

func (r *Registry) handleLogFood(ctx context.Context, args map[string]any) (string, error) {
	userID, _ := args["user_id"].(string)
	foodName, _ := args["food_name"].(string)
	meal, _ := args["meal"].(string)
	if !validMeals[meal] {
		return "", fmt.Errorf("invalid meal %q, must be breakfast, lunch, dinner, or snack", meal)
	}

	servingLabel, _ := args["serving_label"].(string)
	if servingLabel == "" {
		servingLabel = "1 serving"
	}
	quantity := numArg(args, "quantity", 1)

	entry := &nutrition.LogEntry{
		UserID:        userID,
		Date:          nutrition.Today(),
		Meal:          meal,
		FoodName:      foodName,
		ServingLabel:  servingLabel,
		Quantity:      quantity,
		Calories:      numArg(args, "calories", 0),
		ProteinG:      numArg(args, "protein_g", 0),
		CarbsG:        numArg(args, "carbs_g", 0),
		FatG:          numArg(args, "fat_g", 0),
		FiberG:        numArg(args, "fiber_g", 0),
		SugarG:        numArg(args, "sugar_g", 0),
		SodiumMg:      numArg(args, "sodium_mg", 0),
		SaturatedFatG: numArg(args, "saturated_fat_g", 0),
	}
	if err := r.ledger.AddEntry(entry); err != nil {
		return "", err
	}

	return fmt.Sprintf("Logged: %s (%s), %.0f kcal", foodName, meal, entry.Calories), nil
}

func (r *Registry) handleQuickLog(ctx context.Context, args map[string]any) (string, error) {
	userID, _ := args["user_id"].(string)
	description, _ := args["description"].(string)
	meal, _ := args["meal"].(string)
	if meal == "" {
		meal = "snack"
	}
	if !validMeals[meal] {
		return "", fmt.Errorf("invalid meal %q, must be breakfast, lunch, dinner, or snack", meal)
	}

	q := parseQuantity(description)
	if q.Query == "" {
		return "", fmt.Errorf("no food name in %q", description)
	}

	foods, err := r.ledger.SearchFoods(q.Query, 3)
	if err != nil {
		return "", err
	}
	if len(foods) == 0 {
		// Never guess macros for an unknown food.
		return "", fmt.Errorf("could not find '%s' in the food database; search with search_food_database or log it manually with log_food", q.Query)
	}

	food := foods[0]
	multiplier := servingMultiplier(q, food)

	entry := &nutrition.LogEntry{
		UserID:        userID,
		Date:          nutrition.Today(),
		Meal:          meal,
		FoodID:        food.ID,
		FoodName:      food.Name,
		ServingLabel:  q.servingLabel(),
		Quantity:      multiplier,
		Calories:      food.Calories * multiplier,
		ProteinG:      food.ProteinG * multiplier,
		CarbsG:        food.CarbsG * multiplier,
		FatG:          food.FatG * multiplier,
		FiberG:        food.FiberG * multiplier,
		SugarG:        food.SugarG * multiplier,
		SodiumMg:      food.SodiumMg * multiplier,
		SaturatedFatG: food.SaturatedFatG * multiplier,
	}
	if err := r.ledger.AddEntry(entry); err != nil {
		return "", err
	}

	return fmt.Sprintf("Logged: %s (%g%s) for %s, %.0f kcal, %.0fg P, %.0fg C, %.0fg F",
		food.Name, q.Amount, q.Unit, meal,
		entry.Calories, entry.ProteinG, entry.CarbsG, entry.FatG), nil
}

func (r *Registry) handleUpdateDailyTargets(ctx context.Context, args map[string]any) (string, error) {
	user, err := r.userFromArgs(args)
	if err != nil {
		return "", err
	}

	targets := identity.Targets{
		Calories: int(numArg(args, "calories", 0)),
		ProteinG: int(numArg(args, "protein_g", 0)),
		CarbsG:   int(numArg(args, "carbs_g", 0)),
		FatG:     int(numArg(args, "fat_g", 0)),
		FiberG:   user.Targets.FiberG,
	}
	if targets.Calories <= 0 {
		return "", fmt.Errorf("calorie target must be positive")
	}
	if err := r.users.UpdateTargets(user.ID, targets); err != nil {
		return "", err
	}

	return fmt.Sprintf("Targets updated: %d kcal, %dg protein, %dg carbs, %dg fat",
		targets.Calories, targets.ProteinG, targets.CarbsG, targets.FatG), nil
}

func (r *Registry) handleSuggestMeals(ctx context.Context, args map[string]any) (string, error) {
	user, err := r.userFromArgs(args)
	if err != nil {
		return "", err
	}

	maxResults := 5
	if m, ok := args["max_results"].(float64); ok && m > 0 {
		maxResults = int(m)
	}

	totals, err := r.ledger.DailyTotals(user.ID, nutrition.Today())
	if err != nil {
		return "", err
	}

	remainingCal := max(float64(user.Targets.Calories)-totals.Calories, 0)
	remainingP := max(float64(user.Targets.ProteinG)-totals.ProteinG, 0)
	if remainingCal < 50 {
		return fmt.Sprintf("You've hit your calorie target (%d kcal). No more meals to suggest.", user.Targets.Calories), nil
	}

	foods, err := r.ledger.FoodsUnderCalories(remainingCal, 50)
	if err != nil {
		return "", err
	}
	if len(foods) == 0 {
		return "No foods in the database fit your remaining calorie budget.", nil
	}

	// Protein per calorie, favorites first within equal density.
	sort.SliceStable(foods, func(i, j int) bool {
		di := foods[i].ProteinG / foods[i].Calories
		dj := foods[j].ProteinG / foods[j].Calories
		if di != dj {
			return di > dj
		}
		return user.IsFavorite(foods[i].ID) && !user.IsFavorite(foods[j].ID)
	})
	if len(foods) > maxResults {
		foods = foods[:maxResults]
	}

	lines := []string{fmt.Sprintf("Remaining budget: %.0f kcal, %.0fg protein needed\n", remainingCal, remainingP)}
	for _, f := range foods {
		marker := ""
		if user.IsFavorite(f.ID) {
			marker = " [FAVORITE]"
		}
		lines = append(lines, fmt.Sprintf("- %s%s (per %s): %.0f kcal, %.0fg P, %.0fg C, %.0fg F",
			f.Name, marker, f.ServingLabel, f.Calories, f.ProteinG, f.CarbsG, f.FatG))
	}
	return strings.Join(lines, "\n"), nil
}

func numArg(args map[string]any, name string, fallback float64) float64 {
	if v, ok := args[name].(float64); ok {
		return v
	}
	return fallback
}
