package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mvanders/macroai/internal/nutrition"
)

// Quantity patterns for natural language food descriptions.
// Leading: "200g chicken breast", "2 eggs", "1 cup oats".
// Trailing: "chicken breast 150g".
var (
	leadingQtyRe  = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(g|kg|ml|oz|cups?|tbsp|tsp|serving|servings)?\s+`)
	trailingQtyRe = regexp.MustCompile(`(?i)\s+(\d+(?:\.\d+)?)\s*(g|kg|ml|oz)$`)
)

// parsedQuantity is the amount, unit, and remaining food text extracted
// from a quick_log description.
type parsedQuantity struct {
	Amount float64
	Unit   string
	Query  string
}

// parseQuantity splits a description into quantity and food name.
// A bare leading number defaults to grams, so "2 eggs" reads as 2g.
// Unknown units (cup, tbsp, tsp) count servings in servingMultiplier.
// With no quantity at all, the whole text is the food at one serving.
func parseQuantity(description string) parsedQuantity {
	desc := strings.TrimSpace(description)

	if m := leadingQtyRe.FindStringSubmatch(desc); m != nil {
		amount, _ := strconv.ParseFloat(m[1], 64)
		unit := strings.ToLower(m[2])
		if unit == "" {
			unit = "g"
		}
		unit = strings.TrimSuffix(unit, "s")
		return parsedQuantity{
			Amount: amount,
			Unit:   unit,
			Query:  strings.TrimSpace(desc[len(m[0]):]),
		}
	}

	if m := trailingQtyRe.FindStringSubmatch(desc); m != nil {
		amount, _ := strconv.ParseFloat(m[1], 64)
		loc := trailingQtyRe.FindStringIndex(desc)
		return parsedQuantity{
			Amount: amount,
			Unit:   strings.ToLower(m[2]),
			Query:  strings.TrimSpace(desc[:loc[0]]),
		}
	}

	return parsedQuantity{Amount: 1, Unit: "serving", Query: desc}
}

// servingMultiplier converts an amount in the given unit into a number
// of servings of the food. Weight units scale by the food's serving
// grams; anything else counts servings.
func servingMultiplier(q parsedQuantity, f *nutrition.Food) float64 {
	switch q.Unit {
	case "g":
		return q.Amount / f.ServingGrams
	case "kg":
		return q.Amount * 1000 / f.ServingGrams
	case "oz":
		return q.Amount * 28.35 / f.ServingGrams
	default:
		return q.Amount
	}
}

// servingLabel renders the logged portion for display.
func (q parsedQuantity) servingLabel() string {
	if q.Unit == "serving" {
		return fmt.Sprintf("%.0f serving", q.Amount)
	}
	return fmt.Sprintf("%g%s", q.Amount, q.Unit)
}
