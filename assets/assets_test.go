package assets

import (
	"slices"
	"testing"
)

func TestTipsDecode(t *testing.T) {
	tips, err := Tips()
	if err != nil {
		t.Fatalf("Tips: %v", err)
	}
	if len(tips) == 0 {
		t.Fatal("embedded corpus is empty")
	}

	validLevels := []string{"Nivel 1", "Nivel 2", "Nivel 3", "Nivel 4", "Nivel 5", "Todos"}
	validConditions := []string{"Con deudas", "Sin deudas"}
	seen := map[string]bool{}

	for _, tip := range tips {
		if tip.ID == "" || tip.Title == "" || tip.Explanation == "" {
			t.Errorf("tip %q has empty fields", tip.ID)
		}
		if seen[tip.ID] {
			t.Errorf("duplicate tip id %q", tip.ID)
		}
		seen[tip.ID] = true
		if len(tip.IncomeLevels) == 0 || len(tip.Conditions) == 0 {
			t.Errorf("tip %q missing segmentation tags", tip.ID)
		}
		for _, level := range tip.IncomeLevels {
			if !slices.Contains(validLevels, level) {
				t.Errorf("tip %q has unknown income level %q", tip.ID, level)
			}
		}
		for _, cond := range tip.Conditions {
			if !slices.Contains(validConditions, cond) {
				t.Errorf("tip %q has unknown condition %q", tip.ID, cond)
			}
		}
	}
}
