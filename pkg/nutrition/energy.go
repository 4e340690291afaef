package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownGoal  = errors.New("unknown goal")
)

// Sex selects the equation set.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// ParseSex parses a case-insensitive sex value.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	default:
		return "", fmt.Errorf("%w: sex %q (male|female)", ErrInvalidInput, s)
	}
}

// ActivityLevel is the physical activity level used by the TEE equations.
type ActivityLevel string

const (
	Inactive   ActivityLevel = "inactive"
	LowActive  ActivityLevel = "low active"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very active"
)

// ActivityLevels lists the supported levels.
var ActivityLevels = []ActivityLevel{Inactive, LowActive, Active, VeryActive}

// ParseActivityLevel accepts "low active", "low-active" and "low_active" forms.
func ParseActivityLevel(s string) (ActivityLevel, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", " ", "_", " ").Replace(v)
	for _, l := range ActivityLevels {
		if v == string(l) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: activity level %q", ErrInvalidInput, s)
}

// Person holds the inputs for the energy equations.
// Age is in years, height in cm, weight in kg.
type Person struct {
	Sex      Sex           `json:"sex" yaml:"sex"`
	Age      float64       `json:"age" yaml:"age"`
	HeightCm float64       `json:"height_cm" yaml:"heightCm"`
	WeightKg float64       `json:"weight_kg" yaml:"weightKg"`
	Activity ActivityLevel `json:"activity" yaml:"activity"`
}

// Validate checks the numeric inputs.
func (p Person) Validate() error {
	switch {
	case !isFinite(p.Age) || !isFinite(p.HeightCm) || !isFinite(p.WeightKg):
		return fmt.Errorf("%w: non-finite value", ErrInvalidInput)
	case p.Age < 0:
		return fmt.Errorf("%w: age must be non-negative, got %v", ErrInvalidInput, p.Age)
	case p.HeightCm <= 0:
		return fmt.Errorf("%w: height must be positive, got %v", ErrInvalidInput, p.HeightCm)
	case p.WeightKg <= 0:
		return fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidInput, p.WeightKg)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite rejects results that overflowed on extreme inputs.
func finite(kind string, v float64) (float64, error) {
	if !isFinite(v) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidInput, kind)
	}
	return v, nil
}

type coefficients struct {
	base, age, height, weight float64
}

func (c coefficients) eval(p Person) float64 {
	return c.base + c.age*p.Age + c.height*p.HeightCm + c.weight*p.WeightKg
}

const (
	infantMaxAge = 2
	adultMinAge  = 19
)

// ageBand selects the child or adult equations.
type ageBand int

const (
	child ageBand = iota
	adult
)

func bandFor(age float64) ageBand {
	if age >= adultMinAge {
		return adult
	}
	return child
}

var (
	maleInfant   = coefficients{-716.45, -1.00, 17.82, 15.06}
	femaleInfant = coefficients{-69.15, 80.0, 2.65, 54.15}

	teeEquations = map[Sex]map[ageBand]map[ActivityLevel]coefficients{
		Male: {
			child: {
				Inactive:   {-447.51, -3.68, 13.01, 13.15},
				LowActive:  {19.12, 3.68, 8.62, 20.28},
				Active:     {-388.19, 3.68, 12.66, 20.46},
				VeryActive: {-671.75, 3.68, 15.38, 23.25},
			},
			adult: {
				Inactive:   {753.07, -10.83, 6.50, 14.10},
				LowActive:  {581.47, -10.83, 8.30, 14.94},
				Active:     {1004.82, -10.83, 6.52, 15.91},
				VeryActive: {-517.88, -10.83, 15.61, 19.11},
			},
		},
		Female: {
			child: {
				Inactive:   {55.59, -22.25, 8.43, 17.07},
				LowActive:  {-297.54, -22.25, 12.77, 14.73},
				Active:     {-189.55, -22.25, 11.74, 18.34},
				VeryActive: {-709.59, -22.25, 18.22, 14.25},
			},
			adult: {
				Inactive:   {584.90, -7.01, 5.72, 11.71},
				LowActive:  {575.77, -7.01, 6.60, 12.14},
				Active:     {710.25, -7.01, 6.54, 12.34},
				VeryActive: {511.83, -7.01, 9.07, 12.56},
			},
		},
	}
)

// TEE returns total energy expenditure in kcal/day. Infants (age <= 2) use
// a single equation per sex; children (under 19) and adults are selected by
// activity level. An unrecognized activity level uses the very active
// equation. Any sex other than Male uses the female equations.
func TEE(p Person) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	sex := Female
	if p.Sex == Male {
		sex = Male
	}

	if p.Age <= infantMaxAge {
		if sex == Male {
			return finite("tee", maleInfant.eval(p))
		}
		return finite("tee", femaleInfant.eval(p))
	}

	eq := teeEquations[sex][bandFor(p.Age)]
	c, ok := eq[p.Activity]
	if !ok {
		c = eq[VeryActive]
	}
	return finite("tee", c.eval(p))
}

// BMR returns basal metabolic rate in kcal/day: revised Harris-Benedict for
// males, Mifflin-St Jeor for everyone else.
func BMR(p Person) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if p.Sex == Male {
		return finite("bmr", 88.362+13.397*p.WeightKg+4.799*p.HeightCm-5.677*p.Age)
	}
	return finite("bmr", 10*p.WeightKg+6.25*p.HeightCm-5*p.Age-161)
}

const (
	mealsPerDay = 3

	proteinShare = 0.4
	fatShare     = 0.3
	carbsShare   = 0.3

	kcalPerGramProtein = 4
	kcalPerGramFat     = 9
	kcalPerGramCarbs   = 4
)

// Targets are per-meal macro targets in grams.
type Targets struct {
	Protein float64 `json:"protein_g" yaml:"proteinG"`
	Fat     float64 `json:"fat_g" yaml:"fatG"`
	Carbs   float64 `json:"carbs_g" yaml:"carbsG"`
}

// MealTargets splits tee into a 40/30/30 protein/fat/carbs calorie split
// over three meals.
func MealTargets(tee float64) Targets {
	return Targets{
		Protein: tee * proteinShare / kcalPerGramProtein / mealsPerDay,
		Fat:     tee * fatShare / kcalPerGramFat / mealsPerDay,
		Carbs:   tee * carbsShare / kcalPerGramCarbs / mealsPerDay,
	}
}
