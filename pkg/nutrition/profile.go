// Package nutrition reshapes FoodData Central records into a fixed nutrient
// profile and evaluates energy, macro, scoring, and exercise formulas over it.
package nutrition

import (
	"strings"

	"github.com/mchmarny/nutctl/pkg/fdc"
)

// Nutrient is one of the tracked profile nutrients.
type Nutrient string

const (
	Calories Nutrient = "Calories"
	Protein  Nutrient = "Protein (g)"
	Fat      Nutrient = "Fat (g)"
	Carbs    Nutrient = "Carbs (g)"
	Sugar    Nutrient = "Sugar (g)"
	Fiber    Nutrient = "Fiber (g)"
	Sodium   Nutrient = "Sodium (mg)"

	energyUnit = "kcal"
)

// Nutrients lists the tracked nutrients in display order.
var Nutrients = []Nutrient{Calories, Protein, Fat, Carbs, Sugar, Fiber, Sodium}

// DailyValues are the reference adult daily intakes used for normalization.
var DailyValues = map[Nutrient]float64{
	Calories: 2000,
	Protein:  50,
	Fat:      78,
	Carbs:    300,
	Sugar:    50,
	Fiber:    28,
	Sodium:   2300,
}

// keyNutrients maps FDC nutrient names to profile nutrients.
var keyNutrients = map[string]Nutrient{
	"Energy":                       Calories,
	"Protein":                      Protein,
	"Total lipid (fat)":            Fat,
	"Carbohydrate, by difference":  Carbs,
	"Sugars, total including NLEA": Sugar,
	"Total Sugars":                 Sugar,
	"Fiber, total dietary":         Fiber,
	"Sodium, Na":                   Sodium,
}

// Profile is the per-food nutrient row. Missing nutrients are zero.
type Profile struct {
	Food     string  `json:"food" yaml:"food"`
	FDCID    int64   `json:"fdc_id" yaml:"fdcId"`
	Brand    string  `json:"brand,omitempty" yaml:"brand,omitempty"`
	DataType string  `json:"data_type,omitempty" yaml:"dataType,omitempty"`
	GTINUPC  string  `json:"gtin_upc,omitempty" yaml:"gtinUpc,omitempty"`
	Serving  float64 `json:"serving_size,omitempty" yaml:"servingSize,omitempty"`
	Unit     string  `json:"serving_unit,omitempty" yaml:"servingUnit,omitempty"`
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein_g" yaml:"proteinG"`
	Fat      float64 `json:"fat_g" yaml:"fatG"`
	Carbs    float64 `json:"carbs_g" yaml:"carbsG"`
	Sugar    float64 `json:"sugar_g" yaml:"sugarG"`
	Fiber    float64 `json:"fiber_g" yaml:"fiberG"`
	Sodium   float64 `json:"sodium_mg" yaml:"sodiumMg"`
}

// Value returns the amount of n in the profile.
func (p *Profile) Value(n Nutrient) float64 {
	if p == nil {
		return 0
	}
	switch n {
	case Calories:
		return p.Calories
	case Protein:
		return p.Protein
	case Fat:
		return p.Fat
	case Carbs:
		return p.Carbs
	case Sugar:
		return p.Sugar
	case Fiber:
		return p.Fiber
	case Sodium:
		return p.Sodium
	default:
		return 0
	}
}

func (p *Profile) set(n Nutrient, v float64) {
	switch n {
	case Calories:
		p.Calories = v
	case Protein:
		p.Protein = v
	case Fat:
		p.Fat = v
	case Carbs:
		p.Carbs = v
	case Sugar:
		p.Sugar = v
	case Fiber:
		p.Fiber = v
	case Sodium:
		p.Sodium = v
	}
}

// Extract converts a food record into a Profile. When a nutrient appears
// more than once, the last entry wins. Energy entries reported in a unit
// other than kcal (e.g. kJ) are ignored.
func Extract(food *fdc.Food) *Profile {
	if food == nil {
		return nil
	}

	p := &Profile{
		Food:     food.Description,
		FDCID:    food.FDCID,
		Brand:    food.BrandOwner,
		DataType: food.DataType,
		GTINUPC:  food.GTINUPC,
		Serving:  food.ServingSize,
		Unit:     food.ServingSizeUnit,
	}

	for _, fn := range food.FoodNutrients {
		n, ok := keyNutrients[fn.Nutrient.Name]
		if !ok {
			continue
		}
		if n == Calories && fn.Nutrient.UnitName != "" && !strings.EqualFold(fn.Nutrient.UnitName, energyUnit) {
			continue
		}
		p.set(n, fn.Amount)
	}

	return p
}

// ExtractAll converts foods into profiles, skipping nil records.
func ExtractAll(foods []*fdc.Food) []*Profile {
	list := make([]*Profile, 0, len(foods))
	for _, f := range foods {
		if p := Extract(f); p != nil {
			list = append(list, p)
		}
	}
	return list
}
