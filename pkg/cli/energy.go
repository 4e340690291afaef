package cli

import (
	"context"
	"fmt"
	"math"

	"github.com/mchmarny/nutctl/pkg/nutrition"
	"github.com/urfave/cli/v3"
)

var (
	sexFlag = &cli.StringFlag{
		Name:  "sex",
		Usage: "Sex [male, female]",
		Value: string(nutrition.Male),
	}

	ageFlag = &cli.FloatFlag{
		Name:  "age",
		Usage: "Age in years",
	}

	heightFlag = &cli.FloatFlag{
		Name:  "height",
		Usage: "Height in cm",
	}

	weightFlag = &cli.FloatFlag{
		Name:  "weight",
		Usage: "Weight in kg",
	}

	activityLevelFlag = &cli.StringFlag{
		Name:  "activity",
		Usage: "Activity level [inactive, low-active, active, very-active]",
		Value: string(nutrition.Active),
	}

	teeFlag = &cli.FloatFlag{
		Name:  "tee",
		Usage: "Total energy expenditure in kcal/day (computed from person flags when omitted)",
	}

	caloriesFlag = &cli.FloatFlag{
		Name:     "calories",
		Usage:    "Calories to burn",
		Required: true,
	}

	bmiFlag = &cli.FloatFlag{
		Name:  "bmi",
		Usage: "Body mass index (computed from height and weight when omitted)",
	}

	personFlags = []cli.Flag{sexFlag, ageFlag, heightFlag, weightFlag, activityLevelFlag}

	energyCmd = &cli.Command{
		Name:            "energy",
		Aliases:         []string{"e"},
		HideHelpCommand: true,
		Usage:           "Evaluate energy formulas (TEE, BMR, macro targets, BMI, exercise)",
		UsageText: `nutctl energy tee --sex female --age 30 --height 165 --weight 60 --activity active
   nutctl energy macros --tee 2400
   nutctl energy exercise --calories 300 --age 35 --height 180 --weight 85`,
		Commands: []*cli.Command{
			{
				Name:   "tee",
				Usage:  "Total energy expenditure (kcal/day)",
				Flags:  personFlags,
				Action: cmdTEE,
			},
			{
				Name:   "bmr",
				Usage:  "Basal metabolic rate (kcal/day)",
				Flags:  personFlags,
				Action: cmdBMR,
			},
			{
				Name:   "macros",
				Usage:  "Per-meal protein, fat, and carbs targets",
				Flags:  append([]cli.Flag{teeFlag}, personFlags...),
				Action: cmdMacros,
			},
			{
				Name:   "bmi",
				Usage:  "Body mass index and category",
				Flags:  []cli.Flag{heightFlag, weightFlag},
				Action: cmdBMI,
			},
			{
				Name:   "exercise",
				Usage:  "Time and distance per activity needed to burn calories",
				Flags:  []cli.Flag{caloriesFlag, bmiFlag, ageFlag, heightFlag, weightFlag},
				Action: cmdExercise,
			},
			{
				Name:   "summary",
				Usage:  "All energy values for a person",
				Flags:  personFlags,
				Action: cmdEnergySummary,
			},
		},
	}
)

// EnergyResult holds the formula outputs for a person.
type EnergyResult struct {
	Person      *nutrition.Person  `json:"person,omitempty" yaml:"person,omitempty"`
	TEE         *float64           `json:"tee_kcal,omitempty" yaml:"teeKcal,omitempty"`
	BMR         *float64           `json:"bmr_kcal,omitempty" yaml:"bmrKcal,omitempty"`
	BMI         float64            `json:"bmi,omitempty" yaml:"bmi,omitempty"`
	BMICategory string             `json:"bmi_category,omitempty" yaml:"bmiCategory,omitempty"`
	Targets     *nutrition.Targets `json:"meal_targets,omitempty" yaml:"mealTargets,omitempty"`
}

func personFromFlags(cmd *cli.Command) (nutrition.Person, error) {
	sex, err := nutrition.ParseSex(cmd.String(sexFlag.Name))
	if err != nil {
		return nutrition.Person{}, err
	}

	level, err := nutrition.ParseActivityLevel(cmd.String(activityLevelFlag.Name))
	if err != nil {
		return nutrition.Person{}, err
	}

	p := nutrition.Person{
		Sex:      sex,
		Age:      cmd.Float(ageFlag.Name),
		HeightCm: cmd.Float(heightFlag.Name),
		WeightKg: cmd.Float(weightFlag.Name),
		Activity: level,
	}
	if err := p.Validate(); err != nil {
		return nutrition.Person{}, fmt.Errorf("%w (use --age, --height, --weight)", err)
	}
	return p, nil
}

// evaluateEnergy computes all energy values for p. BMI is left empty when
// height or weight fall outside the plausible range.
func evaluateEnergy(p nutrition.Person) (*EnergyResult, error) {
	tee, err := nutrition.TEE(p)
	if err != nil {
		return nil, err
	}

	bmr, err := nutrition.BMR(p)
	if err != nil {
		return nil, err
	}

	targets := nutrition.MealTargets(tee)
	res := &EnergyResult{
		Person:  &p,
		TEE:     &tee,
		BMR:     &bmr,
		Targets: &targets,
	}

	if bmi, err := nutrition.BMI(p.HeightCm, p.WeightKg); err == nil {
		res.BMI = bmi
		res.BMICategory = nutrition.BMICategory(bmi)
	}

	return res, nil
}

func cmdTEE(_ context.Context, cmd *cli.Command) error {
	p, err := personFromFlags(cmd)
	if err != nil {
		return err
	}

	tee, err := nutrition.TEE(p)
	if err != nil {
		return err
	}
	return encode(cmd, &EnergyResult{Person: &p, TEE: &tee})
}

func cmdBMR(_ context.Context, cmd *cli.Command) error {
	p, err := personFromFlags(cmd)
	if err != nil {
		return err
	}

	bmr, err := nutrition.BMR(p)
	if err != nil {
		return err
	}
	return encode(cmd, &EnergyResult{Person: &p, BMR: &bmr})
}

func cmdMacros(_ context.Context, cmd *cli.Command) error {
	tee := cmd.Float(teeFlag.Name)
	if err := checkFinite(teeFlag.Name, tee); err != nil {
		return err
	}
	if tee < 0 {
		return fmt.Errorf("%w: tee must be positive", nutrition.ErrInvalidInput)
	}

	res := &EnergyResult{}
	if tee == 0 {
		p, err := personFromFlags(cmd)
		if err != nil {
			return err
		}
		if tee, err = nutrition.TEE(p); err != nil {
			return err
		}
		res.Person = &p
	}

	targets := nutrition.MealTargets(tee)
	res.TEE = &tee
	res.Targets = &targets
	return encode(cmd, res)
}

func cmdBMI(_ context.Context, cmd *cli.Command) error {
	bmi, err := nutrition.BMI(cmd.Float(heightFlag.Name), cmd.Float(weightFlag.Name))
	if err != nil {
		return err
	}
	return encode(cmd, &EnergyResult{BMI: bmi, BMICategory: nutrition.BMICategory(bmi)})
}

// ExerciseResult lists the activities needed to burn a calorie amount.
type ExerciseResult struct {
	Calories  float64              `json:"calories" yaml:"calories"`
	BMI       float64              `json:"bmi" yaml:"bmi"`
	Age       float64              `json:"age" yaml:"age"`
	Exercises []nutrition.Exercise `json:"exercises" yaml:"exercises"`
}

func newExerciseResult(calories, bmi, age float64) *ExerciseResult {
	return &ExerciseResult{
		Calories:  calories,
		BMI:       bmi,
		Age:       age,
		Exercises: nutrition.ExerciseList(calories, bmi, age),
	}
}

// checkFinite rejects NaN and infinite flag or parameter values.
func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %v", nutrition.ErrInvalidInput, name, v)
	}
	return nil
}

func cmdExercise(_ context.Context, cmd *cli.Command) error {
	for _, f := range []*cli.FloatFlag{caloriesFlag, bmiFlag, ageFlag, heightFlag, weightFlag} {
		if err := checkFinite(f.Name, cmd.Float(f.Name)); err != nil {
			return err
		}
	}

	calories := cmd.Float(caloriesFlag.Name)
	if calories <= 0 {
		return fmt.Errorf("%w: calories must be positive", nutrition.ErrInvalidInput)
	}

	bmi := cmd.Float(bmiFlag.Name)
	if bmi <= 0 && (cmd.Float(heightFlag.Name) > 0 || cmd.Float(weightFlag.Name) > 0) {
		var err error
		if bmi, err = nutrition.BMI(cmd.Float(heightFlag.Name), cmd.Float(weightFlag.Name)); err != nil {
			return err
		}
	}

	return encode(cmd, newExerciseResult(calories, bmi, cmd.Float(ageFlag.Name)))
}

func cmdEnergySummary(_ context.Context, cmd *cli.Command) error {
	p, err := personFromFlags(cmd)
	if err != nil {
		return err
	}

	res, err := evaluateEnergy(p)
	if err != nil {
		return err
	}
	return encode(cmd, res)
}
