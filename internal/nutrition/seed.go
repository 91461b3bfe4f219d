package nutrition

// StarterFoods is the food set installed by the seed command so
// quick_log works out of the box. Values are per the listed serving.
func StarterFoods() []*Food {
	return []*Food{
		{Name: "Chicken Breast", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 165, ProteinG: 31, CarbsG: 0, FatG: 3.6, SodiumMg: 74, SaturatedFatG: 1},
		{Name: "Egg", Source: "usda", ServingLabel: "1 large (50g)", ServingGrams: 50,
			Calories: 72, ProteinG: 6.3, CarbsG: 0.4, FatG: 4.8, SodiumMg: 71, SaturatedFatG: 1.6},
		{Name: "White Rice, Cooked", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 130, ProteinG: 2.7, CarbsG: 28, FatG: 0.3, FiberG: 0.4, SodiumMg: 1},
		{Name: "Brown Rice, Cooked", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 112, ProteinG: 2.3, CarbsG: 24, FatG: 0.8, FiberG: 1.8, SodiumMg: 1},
		{Name: "Rolled Oats", Source: "usda", ServingLabel: "40g dry", ServingGrams: 40,
			Calories: 152, ProteinG: 5.3, CarbsG: 27, FatG: 2.6, FiberG: 4, SugarG: 0.4},
		{Name: "Whole Milk", Source: "usda", ServingLabel: "240ml", ServingGrams: 244,
			Calories: 149, ProteinG: 7.7, CarbsG: 12, FatG: 8, SugarG: 12, SodiumMg: 105, SaturatedFatG: 4.6},
		{Name: "Greek Yogurt, Plain", Source: "usda", ServingLabel: "170g", ServingGrams: 170,
			Calories: 100, ProteinG: 17, CarbsG: 6, FatG: 0.7, SugarG: 6, SodiumMg: 61, SaturatedFatG: 0.2},
		{Name: "Banana", Source: "usda", ServingLabel: "1 medium (118g)", ServingGrams: 118,
			Calories: 105, ProteinG: 1.3, CarbsG: 27, FatG: 0.4, FiberG: 3.1, SugarG: 14},
		{Name: "Apple", Source: "usda", ServingLabel: "1 medium (182g)", ServingGrams: 182,
			Calories: 95, ProteinG: 0.5, CarbsG: 25, FatG: 0.3, FiberG: 4.4, SugarG: 19},
		{Name: "Peanut Butter", Source: "usda", ServingLabel: "2 tbsp (32g)", ServingGrams: 32,
			Calories: 188, ProteinG: 8, CarbsG: 8, FatG: 16, FiberG: 1.9, SugarG: 3, SodiumMg: 147, SaturatedFatG: 3.3},
		{Name: "Salmon, Atlantic", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 208, ProteinG: 20, CarbsG: 0, FatG: 13, SodiumMg: 59, SaturatedFatG: 3.1},
		{Name: "Broccoli", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 34, ProteinG: 2.8, CarbsG: 7, FatG: 0.4, FiberG: 2.6, SugarG: 1.7, SodiumMg: 33},
		{Name: "Sweet Potato", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 86, ProteinG: 1.6, CarbsG: 20, FatG: 0.1, FiberG: 3, SugarG: 4.2, SodiumMg: 55},
		{Name: "Ground Beef 90/10", Source: "usda", ServingLabel: "100g", ServingGrams: 100,
			Calories: 176, ProteinG: 20, CarbsG: 0, FatG: 10, SodiumMg: 66, SaturatedFatG: 4},
		{Name: "Whey Protein Powder", Source: "custom", ServingLabel: "1 scoop (30g)", ServingGrams: 30,
			Calories: 120, ProteinG: 24, CarbsG: 3, FatG: 1.5, SugarG: 2, SodiumMg: 50, SaturatedFatG: 1},
		{Name: "Almonds", Source: "usda", ServingLabel: "28g", ServingGrams: 28,
			Calories: 164, ProteinG: 6, CarbsG: 6, FatG: 14, FiberG: 3.5, SugarG: 1.2, SaturatedFatG: 1.1},
		{Name: "Whole Wheat Bread", Source: "usda", ServingLabel: "1 slice (43g)", ServingGrams: 43,
			Calories: 109, ProteinG: 4, CarbsG: 20, FatG: 1.1, FiberG: 3, SugarG: 2.6, SodiumMg: 170},
		{Name: "Avocado", Source: "usda", ServingLabel: "1/2 fruit (100g)", ServingGrams: 100,
			Calories: 160, ProteinG: 2, CarbsG: 9, FatG: 15, FiberG: 6.7, SugarG: 0.7, SodiumMg: 7, SaturatedFatG: 2.1},
		{Name: "Cottage Cheese 2%", Source: "usda", ServingLabel: "113g", ServingGrams: 113,
			Calories: 90, ProteinG: 12, CarbsG: 5, FatG: 2.5, SugarG: 4, SodiumMg: 350, SaturatedFatG: 1.5},
		{Name: "Olive Oil", Source: "usda", ServingLabel: "1 tbsp (14g)", ServingGrams: 14,
			Calories: 119, FatG: 14, SaturatedFatG: 1.9},
	}
}

// Seed installs the starter food set when the database is empty.
// Returns the number of foods inserted.
func (l *Ledger) Seed() (int, error) {
	n, err := l.CountFoods()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	inserted := 0
	for _, f := range StarterFoods() {
		if err := l.AddFood(f); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
