package nutrition

import "fmt"

// Alert flags a daily total that crossed, or is approaching, a limit.
type Alert struct {
	Nutrient  string  `json:"nutrient"`
	Label     string  `json:"label"`
	Current   float64 `json:"current"`
	Limit     float64 `json:"limit"`
	Unit      string  `json:"unit"`
	Severity  string  `json:"severity"`  // "warning" or "info"
	Direction string  `json:"direction"` // "over" or "under"
	Message   string  `json:"message"`
}

type upperLimit struct {
	label string
	limit float64
	unit  string
}

// Daily upper limits, general guideline values.
var upperLimits = []struct {
	nutrient string
	upperLimit
	value func(Totals) float64
}{
	{"sodium_mg", upperLimit{"Sodium", 2300, "mg"}, func(t Totals) float64 { return t.SodiumMg }},
	{"sugar_g", upperLimit{"Sugar", 50, "g"}, func(t Totals) float64 { return t.SugarG }},
	{"saturated_fat_g", upperLimit{"Saturated Fat", 20, "g"}, func(t Totals) float64 { return t.SaturatedFatG }},
}

// FiberLowerLimitG is the daily fiber minimum.
const FiberLowerLimitG = 25

// CheckAlerts evaluates one day's entries against nutrient limits.
// Upper limits warn when crossed and inform above 80%. Lower limits
// (fiber and the caller's protein target) only fire once at least two
// entries exist, so a single logged snack does not trigger them.
func CheckAlerts(entries []*LogEntry, proteinTarget float64) []Alert {
	if len(entries) == 0 {
		return nil
	}
	totals := Sum(entries)

	var alerts []Alert
	for _, ul := range upperLimits {
		current := ul.value(totals)
		switch {
		case current > ul.limit:
			alerts = append(alerts, Alert{
				Nutrient:  ul.nutrient,
				Label:     ul.label,
				Current:   current,
				Limit:     ul.limit,
				Unit:      ul.unit,
				Severity:  "warning",
				Direction: "over",
				Message: fmt.Sprintf("%s is at %.0f%s, over the %.0f%s daily limit",
					ul.label, current, ul.unit, ul.limit, ul.unit),
			})
		case current > ul.limit*0.8:
			alerts = append(alerts, Alert{
				Nutrient:  ul.nutrient,
				Label:     ul.label,
				Current:   current,
				Limit:     ul.limit,
				Unit:      ul.unit,
				Severity:  "info",
				Direction: "over",
				Message: fmt.Sprintf("%s is at %.0f%s, approaching the %.0f%s daily limit",
					ul.label, current, ul.unit, ul.limit, ul.unit),
			})
		}
	}

	if totals.FiberG < FiberLowerLimitG*0.5 && len(entries) >= 2 {
		alerts = append(alerts, Alert{
			Nutrient:  "fiber_g",
			Label:     "Fiber",
			Current:   totals.FiberG,
			Limit:     FiberLowerLimitG,
			Unit:      "g",
			Severity:  "info",
			Direction: "under",
			Message: fmt.Sprintf("Fiber is at %.0fg, aim for at least %dg daily",
				totals.FiberG, FiberLowerLimitG),
		})
	}

	if proteinTarget > 0 && totals.ProteinG < proteinTarget*0.5 && len(entries) >= 2 {
		alerts = append(alerts, Alert{
			Nutrient:  "protein_g",
			Label:     "Protein",
			Current:   totals.ProteinG,
			Limit:     proteinTarget,
			Unit:      "g",
			Severity:  "info",
			Direction: "under",
			Message: fmt.Sprintf("Protein is at %.0fg, target is %.0fg",
				totals.ProteinG, proteinTarget),
		})
	}

	return alerts
}
