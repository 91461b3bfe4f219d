package nutrition

import "testing"

func entry(nutrients LogEntry) *LogEntry {
	e := nutrients
	if e.UserID == "" {
		e.UserID = "u1"
	}
	return &e
}

func findAlert(alerts []Alert, nutrient string) *Alert {
	for i := range alerts {
		if alerts[i].Nutrient == nutrient {
			return &alerts[i]
		}
	}
	return nil
}

func TestCheckAlertsEmptyDay(t *testing.T) {
	if got := CheckAlerts(nil, 150); got != nil {
		t.Errorf("expected no alerts for empty day, got %v", got)
	}
}

func TestCheckAlertsUpperLimits(t *testing.T) {
	tests := []struct {
		name         string
		sodium       float64
		wantSeverity string // "" means no sodium alert
	}{
		{"well under", 1000, ""},
		{"approaching", 2000, "info"},
		{"over", 2500, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []*LogEntry{entry(LogEntry{SodiumMg: tt.sodium, FiberG: 30, ProteinG: 200})}
			alerts := CheckAlerts(entries, 150)

			a := findAlert(alerts, "sodium_mg")
			if tt.wantSeverity == "" {
				if a != nil {
					t.Errorf("unexpected alert %+v", a)
				}
				return
			}
			if a == nil {
				t.Fatal("expected sodium alert")
			}
			if a.Severity != tt.wantSeverity || a.Direction != "over" {
				t.Errorf("alert = %+v", a)
			}
		})
	}
}

func TestCheckAlertsLowerLimitsNeedTwoEntries(t *testing.T) {
	// One entry: low fiber and protein are expected, not alarming.
	one := []*LogEntry{entry(LogEntry{FiberG: 1, ProteinG: 5})}
	alerts := CheckAlerts(one, 150)
	if findAlert(alerts, "fiber_g") != nil || findAlert(alerts, "protein_g") != nil {
		t.Errorf("lower-limit alerts fired on a single entry: %v", alerts)
	}

	two := []*LogEntry{
		entry(LogEntry{FiberG: 1, ProteinG: 5}),
		entry(LogEntry{FiberG: 2, ProteinG: 10}),
	}
	alerts = CheckAlerts(two, 150)

	fiber := findAlert(alerts, "fiber_g")
	if fiber == nil || fiber.Direction != "under" || fiber.Severity != "info" {
		t.Errorf("fiber alert = %+v", fiber)
	}

	protein := findAlert(alerts, "protein_g")
	if protein == nil || protein.Limit != 150 {
		t.Errorf("protein alert = %+v", protein)
	}
}

func TestCheckAlertsProteinTargetDisabled(t *testing.T) {
	entries := []*LogEntry{
		entry(LogEntry{ProteinG: 1}),
		entry(LogEntry{ProteinG: 1}),
	}
	alerts := CheckAlerts(entries, 0)
	if findAlert(alerts, "protein_g") != nil {
		t.Error("protein alert should not fire without a target")
	}
}

func TestCheckAlertsHealthyDay(t *testing.T) {
	entries := []*LogEntry{
		entry(LogEntry{Calories: 600, ProteinG: 50, FiberG: 12, SodiumMg: 500, SugarG: 10, SaturatedFatG: 4}),
		entry(LogEntry{Calories: 700, ProteinG: 55, FiberG: 14, SodiumMg: 600, SugarG: 12, SaturatedFatG: 5}),
	}
	if alerts := CheckAlerts(entries, 100); len(alerts) != 0 {
		t.Errorf("expected no alerts, got %v", alerts)
	}
}
