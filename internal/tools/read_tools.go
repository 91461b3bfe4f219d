package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/nutrition"
)

func (r *Registry) registerReadTools() {
	r.Register(&Tool{
		Name:        "get_user_profile",
		Description: "Get the user's profile: age, height, weight, gender, activity level, and daily macro targets.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		InjectUser: true,
		Handler:    r.handleGetUserProfile,
	})

	r.Register(&Tool{
		Name:        "get_todays_food_log",
		Description: "Get all food entries logged today, grouped by meal.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		InjectUser: true,
		Handler:    r.handleGetTodaysFoodLog,
	})

	r.Register(&Tool{
		Name:        "get_daily_totals",
		Description: "Get total calories and macros for a given date (YYYY-MM-DD). Defaults to today.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Date in YYYY-MM-DD format. Empty means today.",
				},
			},
		},
		InjectUser: true,
		Handler:    r.handleGetDailyTotals,
	})

	r.Register(&Tool{
		Name:        "get_weekly_averages",
		Description: "Get average daily calories and macros over the past 7 days.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		InjectUser: true,
		Handler:    r.handleGetWeeklyAverages,
	})

	r.Register(&Tool{
		Name:        "get_weekly_report",
		Description: "Get a summary of the user's nutrition for the past 7 days: averages, target adherence, highlights, and weight change.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		InjectUser: true,
		Handler:    r.handleGetWeeklyReport,
	})

	r.Register(&Tool{
		Name:        "search_food_database",
		Description: "Search the food database by name. Returns matching foods with macros per serving. Favorites are marked with [FAVORITE].",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Food name to search for",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results (default 10)",
				},
			},
			"required": []string{"query"},
		},
		InjectUser: true,
		Handler:    r.handleSearchFoodDatabase,
	})

	r.Register(&Tool{
		Name:        "get_weight_trend",
		Description: "Get recent weight entries and trend over the specified number of days.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"days": map[string]any{
					"type":        "integer",
					"description": "Number of days to look back (default 14)",
				},
			},
		},
		InjectUser: true,
		Handler:    r.handleGetWeightTrend,
	})

	r.Register(&Tool{
		Name:        "get_nutrient_alerts",
		Description: "Check today's intake against nutrient limits (sodium, sugar, saturated fat, fiber, protein). Returns any active warnings or info alerts.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		InjectUser: true,
		Handler:    r.handleGetNutrientAlerts,
	})
}

func (r *Registry) handleGetUserProfile(ctx context.Context, args map[string]any) (string, error) {
	user, err := r.userFromArgs(args)
	if err != nil {
		return "", err
	}

	p := user.Profile
	t := user.Targets
	return fmt.Sprintf(
		"Age: %d, Gender: %s, Height: %.0fcm, Weight: %.0fkg, Activity: %s\n"+
			"Daily targets: Calories: %d, Protein: %dg, Carbs: %dg, Fat: %dg, Fiber: %dg",
		p.Age, p.Gender, p.HeightCm, p.WeightKg, p.ActivityLevel,
		t.Calories, t.ProteinG, t.CarbsG, t.FatG, t.FiberG), nil
}

func (r *Registry) handleGetTodaysFoodLog(ctx context.Context, args map[string]any) (string, error) {
	userID, _ := args["user_id"].(string)
	entries, err := r.ledger.EntriesForDate(userID, nutrition.Today())
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No food logged today.", nil
	}

	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %.0f kcal, %.0fg P, %.0fg C, %.0fg F",
			e.Meal, e.FoodName, e.Calories, e.ProteinG, e.CarbsG, e.FatG))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Registry) handleGetDailyTotals(ctx context.Context, args map[string]any) (string, error) {
	userID, _ := args["user_id"].(string)
	date, _ := args["date"].(string)
	if date == "" {
		date = nutrition.Today()
	} else if _, err := time.Parse(nutrition.DayFormat, date); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	totals, err := r.ledger.DailyTotals(userID, date)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Totals for %s: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat, "+
			"%.0fg fiber, %.0fg sugar, %.0fmg sodium, %.0fg saturated fat",
		date, totals.Calories, totals.ProteinG, totals.CarbsG, totals.FatG,
		totals.FiberG, totals.SugarG, totals.SodiumMg, totals.SaturatedFatG), nil
}

func (r *Registry) handleGetWeeklyAverages(ctx context.Context, args map[string]any) (string, error) {
	userID, _ := args["user_id"].(string)
	today := time.Now()
	from := today.AddDate(0, 0, -7).Format(nutrition.DayFormat)
	entries, err := r.ledger.EntriesBetween(userID, from, today.Format(nutrition.DayFormat))
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No data for the past 7 days.", nil
	}

	days := groupByDate(entries)
	n := float64(len(days))
	var cal, p, c, f float64
	for _, day := range days {
		t := nutrition.Sum(day)
		cal += t.Calories
		p += t.ProteinG
		c += t.CarbsG
		f += t.FatG
	}

	return fmt.Sprintf("7-day averages (%d days logged): %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat",
		len(days), cal/n, p/n, c/n, f/n), nil
}

func (r *Registry) handleGetWeeklyReport(ctx context.Context, args map[string]any) (string, error) {
	user, err := r.userFromArgs(args)
	if err != nil {
		return "", err
	}

	today := nutrition.Today()
	weekAgo := time.Now().AddDate(0, 0, -6).Format(nutrition.DayFormat)
	entries, err := r.ledger.EntriesBetween(user.ID, weekAgo, today)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No food logged in the past 7 days.", nil
	}

	days := groupByDate(entries)
	n := float64(len(days))
	var avg nutrition.Totals
	for _, day := range days {
		t := nutrition.Sum(day)
		avg.Calories += t.Calories
		avg.ProteinG += t.ProteinG
		avg.CarbsG += t.CarbsG
		avg.FatG += t.FatG
		avg.FiberG += t.FiberG
		avg.SugarG += t.SugarG
		avg.SodiumMg += t.SodiumMg
		avg.SaturatedFatG += t.SaturatedFatG
	}
	avg.Calories /= n
	avg.ProteinG /= n
	avg.CarbsG /= n
	avg.FatG /= n
	avg.FiberG /= n
	avg.SugarG /= n
	avg.SodiumMg /= n
	avg.SaturatedFatG /= n

	lines := []string{
		fmt.Sprintf("Weekly report (%s to %s), %d days logged:", weekAgo, today, len(days)),
		fmt.Sprintf("Daily averages: %.0f kcal, %.0fg P, %.0fg C, %.0fg F",
			avg.Calories, avg.ProteinG, avg.CarbsG, avg.FatG),
		fmt.Sprintf("  Fiber: %.0fg, Sugar: %.0fg, Sodium: %.0fmg, Sat Fat: %.0fg",
			avg.FiberG, avg.SugarG, avg.SodiumMg, avg.SaturatedFatG),
	}

	t := user.Targets
	lines = append(lines, fmt.Sprintf("vs Targets: %.0f/%d kcal, %.0f/%dg P, %.0f/%dg C, %.0f/%dg F",
		avg.Calories, t.Calories, avg.ProteinG, t.ProteinG, avg.CarbsG, t.CarbsG, avg.FatG, t.FatG))

	weights, err := r.ledger.WeightsBetween(user.ID, weekAgo, today)
	if err != nil {
		return "", err
	}
	if len(weights) >= 2 {
		diff := weights[len(weights)-1].WeightKg - weights[0].WeightKg
		direction := "up"
		if diff < 0 {
			direction = "down"
		}
		lines = append(lines, fmt.Sprintf("Weight: %s %.1f kg this week", direction, abs(diff)))
	}

	return strings.Join(lines, "\n"), nil
}

func (r *Registry) handleSearchFoodDatabase(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	limit := 10
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	foods, err := r.ledger.SearchFoods(query, limit)
	if err != nil {
		return "", err
	}
	if len(foods) == 0 {
		return fmt.Sprintf("No foods found matching '%s'.", query), nil
	}

	user, err := r.userFromArgs(args)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, f := range foods {
		marker := ""
		if user.IsFavorite(f.ID) {
			marker = " [FAVORITE]"
		}
		lines = append(lines, fmt.Sprintf(
			"- %s%s (per %s): %.0f kcal, %.0fg P, %.0fg C, %.0fg F, "+
				"%.0fg fiber, %.0fg sugar, %.0fmg sodium, %.0fg sat fat",
			f.Name, marker, f.ServingLabel, f.Calories, f.ProteinG, f.CarbsG, f.FatG,
			f.FiberG, f.SugarG, f.SodiumMg, f.SaturatedFatG))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Registry) handleGetWeightTrend(ctx context.Context, args map[string]any) (string, error) {
	userID, _ := args["user_id"].(string)
	days := 14
	if d, ok := args["days"].(float64); ok && d > 0 {
		days = int(d)
	}

	today := time.Now()
	from := today.AddDate(0, 0, -days).Format(nutrition.DayFormat)
	weights, err := r.ledger.WeightsBetween(userID, from, today.Format(nutrition.DayFormat))
	if err != nil {
		return "", err
	}
	if len(weights) == 0 {
		return "No weight entries found.", nil
	}

	var lines []string
	for _, w := range weights {
		lines = append(lines, fmt.Sprintf("- %s: %.1f kg", w.Date, w.WeightKg))
	}
	if len(weights) >= 2 {
		diff := weights[len(weights)-1].WeightKg - weights[0].WeightKg
		direction := "up"
		if diff < 0 {
			direction = "down"
		}
		lines = append(lines, fmt.Sprintf("Trend: %s %.1f kg over %d days", direction, abs(diff), days))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Registry) handleGetNutrientAlerts(ctx context.Context, args map[string]any) (string, error) {
	user, err := r.userFromArgs(args)
	if err != nil {
		return "", err
	}

	entries, err := r.ledger.EntriesForDate(user.ID, nutrition.Today())
	if err != nil {
		return "", err
	}

	alerts := nutrition.CheckAlerts(entries, float64(user.Targets.ProteinG))
	if len(alerts) == 0 {
		return "No nutrient alerts, all within healthy limits.", nil
	}

	var lines []string
	for _, a := range alerts {
		lines = append(lines, fmt.Sprintf("- [%s] %s", strings.ToUpper(a.Severity), a.Message))
	}
	return strings.Join(lines, "\n"), nil
}

// userFromArgs loads the injected user. Tools fail rather than proceed
// when the user row has gone missing mid-session.
func (r *Registry) userFromArgs(args map[string]any) (*identity.User, error) {
	userID, _ := args["user_id"].(string)
	user, err := r.users.Get(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

func groupByDate(entries []*nutrition.LogEntry) map[string][]*nutrition.LogEntry {
	days := make(map[string][]*nutrition.LogEntry)
	for _, e := range entries {
		days[e.Date] = append(days[e.Date], e)
	}
	return days
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
