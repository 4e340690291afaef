package nutrition

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Goal selects the scoring weights.
type Goal string

const (
	MuscleGain Goal = "muscle_gain"
	FatLoss    Goal = "fat_loss"
)

// Weights are applied to the calories, protein, fat, and carbs scores in that order.
type Weights [4]float64

var goalWeights = map[Goal]Weights{
	MuscleGain: {0.2, 0.4, 0.2, 0.2},
	FatLoss:    {0.3, 0.4, 0.3, 0.2},
}

// Goals lists the supported goals.
var Goals = []Goal{MuscleGain, FatLoss}

// ParseGoal accepts "muscle_gain", "muscle-gain" and "muscle gain" forms.
func ParseGoal(s string) (Goal, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	g := Goal(v)
	if _, ok := goalWeights[g]; !ok {
		return "", fmt.Errorf("%w: %q (muscle_gain|fat_loss)", ErrUnknownGoal, s)
	}
	return g, nil
}

// WeightsFor returns the weights for g.
func WeightsFor(g Goal) (Weights, error) {
	w, ok := goalWeights[g]
	if !ok {
		return Weights{}, fmt.Errorf("%w: %q", ErrUnknownGoal, g)
	}
	return w, nil
}

// Scored is a profile with its per-nutrient and total scores.
type Scored struct {
	*Profile      `yaml:",inline"`
	CaloriesScore float64 `json:"calories_score" yaml:"caloriesScore"`
	ProteinScore  float64 `json:"protein_score" yaml:"proteinScore"`
	FatScore      float64 `json:"fat_score" yaml:"fatScore"`
	CarbsScore    float64 `json:"carbs_score" yaml:"carbsScore"`
	Total         float64 `json:"total_score" yaml:"totalScore"`
}

// boundedScore rewards up to the target and caps at 1.
func boundedScore(x, t float64) float64 {
	return math.Min(x/t, 1)
}

// penalizedScore rises to 1 at the target, then falls linearly to 0 at twice the target.
func penalizedScore(x, t float64) float64 {
	if x > t {
		return math.Max(0, 2-x/t)
	}
	return x / t
}

// ScoreMenu scores each profile against the per-meal targets and the
// calorie reference tee, and returns them sorted by total score, highest
// first. Ties keep input order. The input slice is not modified.
func ScoreMenu(profiles []*Profile, targets Targets, tee float64, goal Goal) ([]*Scored, error) {
	w, err := WeightsFor(goal)
	if err != nil {
		return nil, err
	}
	if !(tee > 0) || !(targets.Protein > 0) || !(targets.Fat > 0) || !(targets.Carbs > 0) {
		return nil, fmt.Errorf("%w: tee and targets must be positive", ErrInvalidInput)
	}

	list := make([]*Scored, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		s := &Scored{
			Profile:       p,
			CaloriesScore: penalizedScore(p.Calories, tee),
			ProteinScore:  boundedScore(p.Protein, targets.Protein),
			FatScore:      penalizedScore(p.Fat, targets.Fat),
			CarbsScore:    penalizedScore(p.Carbs, targets.Carbs),
		}
		s.Total = s.CaloriesScore*w[0] + s.ProteinScore*w[1] + s.FatScore*w[2] + s.CarbsScore*w[3]
		list = append(list, s)
	}

	slices.SortStableFunc(list, func(a, b *Scored) int {
		return cmp.Compare(b.Total, a.Total)
	})

	return list, nil
}
