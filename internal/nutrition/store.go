package nutrition

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ledger is the SQLite-backed nutrition store.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates a nutrition ledger using the given database.
func NewLedger(db *sql.DB) (*Ledger, error) {
	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS foods (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'custom',
			created_by TEXT NOT NULL DEFAULT '',
			serving_label TEXT NOT NULL DEFAULT '100g',
			serving_grams REAL NOT NULL DEFAULT 100,
			calories REAL NOT NULL DEFAULT 0,
			protein_g REAL NOT NULL DEFAULT 0,
			carbs_g REAL NOT NULL DEFAULT 0,
			fat_g REAL NOT NULL DEFAULT 0,
			fiber_g REAL NOT NULL DEFAULT 0,
			sugar_g REAL NOT NULL DEFAULT 0,
			sodium_mg REAL NOT NULL DEFAULT 0,
			saturated_fat_g REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name COLLATE NOCASE);

		CREATE TABLE IF NOT EXISTS food_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			meal TEXT NOT NULL DEFAULT 'snack',
			food_id TEXT NOT NULL DEFAULT '',
			food_name TEXT NOT NULL,
			serving_label TEXT NOT NULL DEFAULT '1 serving',
			quantity REAL NOT NULL DEFAULT 1,
			calories REAL NOT NULL DEFAULT 0,
			protein_g REAL NOT NULL DEFAULT 0,
			carbs_g REAL NOT NULL DEFAULT 0,
			fat_g REAL NOT NULL DEFAULT 0,
			fiber_g REAL NOT NULL DEFAULT 0,
			sugar_g REAL NOT NULL DEFAULT 0,
			sodium_mg REAL NOT NULL DEFAULT 0,
			saturated_fat_g REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_food_log_user_date ON food_log(user_id, date);

		CREATE TABLE IF NOT EXISTS weights (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			weight_kg REAL NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_weights_user_date ON weights(user_id, date);
	`)
	return err
}

// AddFood inserts a food, assigning an id if the caller did not.
func (l *Ledger) AddFood(f *Food) error {
	if f.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		f.ID = id.String()
	}
	if f.ServingLabel == "" {
		f.ServingLabel = "100g"
	}
	if f.ServingGrams <= 0 {
		f.ServingGrams = 100
	}
	if f.Source == "" {
		f.Source = "custom"
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(`
		INSERT INTO foods (id, name, brand, source, created_by, serving_label, serving_grams,
			calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g, sodium_mg, saturated_fat_g, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.Name, f.Brand, f.Source, f.CreatedBy, f.ServingLabel, f.ServingGrams,
		f.Calories, f.ProteinG, f.CarbsG, f.FatG, f.FiberG, f.SugarG, f.SodiumMg, f.SaturatedFatG,
		f.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert food: %w", err)
	}
	return nil
}

const foodColumns = `id, name, brand, source, created_by, serving_label, serving_grams,
	calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g, sodium_mg, saturated_fat_g, created_at`

// SearchFoods finds foods whose name contains every word of the query,
// case-insensitive, shortest names first so exact foods beat composites.
func (l *Ledger) SearchFoods(query string, limit int) ([]*Food, error) {
	if limit <= 0 {
		limit = 10
	}

	where := make([]string, 0, 4)
	args := make([]any, 0, 5)
	for _, word := range strings.Fields(query) {
		where = append(where, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(word)+"%")
	}
	if len(where) == 0 {
		return nil, nil
	}
	args = append(args, limit)

	rows, err := l.db.Query(`
		SELECT `+foodColumns+`
		FROM foods
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY length(name) ASC, name ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query foods: %w", err)
	}
	defer rows.Close()
	return scanFoods(rows)
}

// FoodsUnderCalories returns foods that fit within maxCalories per
// serving, highest protein first.
func (l *Ledger) FoodsUnderCalories(maxCalories float64, limit int) ([]*Food, error) {
	rows, err := l.db.Query(`
		SELECT `+foodColumns+`
		FROM foods
		WHERE calories > 0 AND calories <= ?
		ORDER BY protein_g DESC
		LIMIT ?
	`, maxCalories, limit)
	if err != nil {
		return nil, fmt.Errorf("query foods: %w", err)
	}
	defer rows.Close()
	return scanFoods(rows)
}

// CountFoods returns the number of foods in the database.
func (l *Ledger) CountFoods() (int, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM foods`).Scan(&n)
	return n, err
}

// AddEntry inserts a food log entry, assigning an id if needed.
func (l *Ledger) AddEntry(e *LogEntry) error {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		e.ID = id.String()
	}
	if e.Date == "" {
		e.Date = Today()
	}
	if e.Meal == "" {
		e.Meal = "snack"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(`
		INSERT INTO food_log (id, user_id, date, meal, food_id, food_name, serving_label, quantity,
			calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g, sodium_mg, saturated_fat_g, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Date, e.Meal, e.FoodID, e.FoodName, e.ServingLabel, e.Quantity,
		e.Calories, e.ProteinG, e.CarbsG, e.FatG, e.FiberG, e.SugarG, e.SodiumMg, e.SaturatedFatG,
		e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

const entryColumns = `id, user_id, date, meal, food_id, food_name, serving_label, quantity,
	calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g, sodium_mg, saturated_fat_g, created_at`

// EntriesForDate returns a user's log for one day, ordered by meal then
// insertion time.
func (l *Ledger) EntriesForDate(userID, date string) ([]*LogEntry, error) {
	rows, err := l.db.Query(`
		SELECT `+entryColumns+`
		FROM food_log
		WHERE user_id = ? AND date = ?
		ORDER BY meal ASC, created_at ASC
	`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesBetween returns a user's log entries with from <= date <= to.
func (l *Ledger) EntriesBetween(userID, from, to string) ([]*LogEntry, error) {
	rows, err := l.db.Query(`
		SELECT `+entryColumns+`
		FROM food_log
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DailyTotals sums a user's nutrients for one day.
func (l *Ledger) DailyTotals(userID, date string) (Totals, error) {
	entries, err := l.EntriesForDate(userID, date)
	if err != nil {
		return Totals{}, err
	}
	return Sum(entries), nil
}

// AddWeight inserts a weigh-in, assigning an id if needed.
func (l *Ledger) AddWeight(w *WeightEntry) error {
	if w.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		w.ID = id.String()
	}
	if w.Date == "" {
		w.Date = Today()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(`
		INSERT INTO weights (id, user_id, date, weight_kg, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.UserID, w.Date, w.WeightKg, w.Note, w.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert weight: %w", err)
	}
	return nil
}

// WeightsBetween returns a user's weigh-ins with from <= date <= to,
// oldest first.
func (l *Ledger) WeightsBetween(userID, from, to string) ([]*WeightEntry, error) {
	rows, err := l.db.Query(`
		SELECT id, user_id, date, weight_kg, note, created_at
		FROM weights
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()

	var weights []*WeightEntry
	for rows.Next() {
		var w WeightEntry
		var createdStr string
		if err := rows.Scan(&w.ID, &w.UserID, &w.Date, &w.WeightKg, &w.Note, &createdStr); err != nil {
			return nil, err
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		weights = append(weights, &w)
	}
	return weights, rows.Err()
}

func scanFoods(rows *sql.Rows) ([]*Food, error) {
	var foods []*Food
	for rows.Next() {
		var f Food
		var createdStr string
		err := rows.Scan(&f.ID, &f.Name, &f.Brand, &f.Source, &f.CreatedBy, &f.ServingLabel, &f.ServingGrams,
			&f.Calories, &f.ProteinG, &f.CarbsG, &f.FatG, &f.FiberG, &f.SugarG, &f.SodiumMg, &f.SaturatedFatG,
			&createdStr)
		if err != nil {
			return nil, err
		}
		f.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		foods = append(foods, &f)
	}
	return foods, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]*LogEntry, error) {
	var entries []*LogEntry
	for rows.Next() {
		var e LogEntry
		var createdStr string
		err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Meal, &e.FoodID, &e.FoodName, &e.ServingLabel, &e.Quantity,
			&e.Calories, &e.ProteinG, &e.CarbsG, &e.FatG, &e.FiberG, &e.SugarG, &e.SodiumMg, &e.SaturatedFatG,
			&createdStr)
		if err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
