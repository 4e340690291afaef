package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/nutctl/pkg/data"
	"github.com/mchmarny/nutctl/pkg/fdc"
	"github.com/mchmarny/nutctl/pkg/metrics"
	"github.com/mchmarny/nutctl/pkg/nutrition"
	"github.com/urfave/cli/v3"
)

const (
	scoreResultLimitDefault = 10
)

var (
	goalFlag = &cli.StringFlag{
		Name:  "goal",
		Usage: "Scoring goal [muscle_gain, fat_loss] (default: config goal)",
	}

	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "Number of ranked foods to return (0 for all)",
		Value: scoreResultLimitDefault,
	}

	refreshFlag = &cli.BoolFlag{
		Name:  "refresh",
		Usage: "Re-import the query from FoodData Central before scoring",
	}

	scoreCmd = &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Rank the foods of a search against per-meal targets for a person and goal",
		UsageText: `nutctl score --query "protein bar" --sex male --age 30 --height 180 --weight 80 --goal muscle_gain
   nutctl score -q oatmeal --sex female --age 42 --height 160 --weight 58 --goal fat_loss --top 5`,
		Action: cmdScore,
		Flags: append([]cli.Flag{
			queryFlag,
			goalFlag,
			topFlag,
			limitFlag,
			refreshFlag,
		}, personFlags...),
	}
)

// ScoreRequest is the input of one scoring run.
type ScoreRequest struct {
	Query   string           `json:"query" yaml:"query"`
	Goal    string           `json:"goal,omitempty" yaml:"goal,omitempty"`
	Person  nutrition.Person `json:"person" yaml:"person"`
	Top     int              `json:"top,omitempty" yaml:"top,omitempty"`
	Limit   int              `json:"limit,omitempty" yaml:"limit,omitempty"`
	Refresh bool             `json:"refresh,omitempty" yaml:"refresh,omitempty"`
}

// ScoreResult is the ranked menu with the targets it was scored against.
type ScoreResult struct {
	Query   string              `json:"query" yaml:"query"`
	Goal    nutrition.Goal      `json:"goal" yaml:"goal"`
	Person  nutrition.Person    `json:"person" yaml:"person"`
	TEE     float64             `json:"tee_kcal" yaml:"teeKcal"`
	Targets nutrition.Targets   `json:"meal_targets" yaml:"mealTargets"`
	Import  *ImportResult       `json:"import,omitempty" yaml:"import,omitempty"`
	Foods   []*nutrition.Scored `json:"foods" yaml:"foods"`
}

// clientFunc creates an API client on demand so cached scoring works without a key.
type clientFunc func() (*fdc.Client, error)

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	p, err := personFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	req := &ScoreRequest{
		Query:   cmd.String(queryFlag.Name),
		Goal:    cmd.String(goalFlag.Name),
		Person:  p,
		Top:     cmd.Int(topFlag.Name),
		Limit:   cmd.Int(limitFlag.Name),
		Refresh: cmd.Bool(refreshFlag.Name),
	}

	res, err := scoreFoods(ctx, store, func() (*fdc.Client, error) {
		return newFDCClient(cmd)
	}, cfg.Config.Goal, cfg.Config.PageSize, req)
	if err != nil {
		return err
	}
	return encode(cmd, res)
}

// scoreFoods ranks the cached foods of req.Query, importing the query first
// when nothing is cached or a refresh is requested.
func scoreFoods(ctx context.Context, store *data.Store, newClient clientFunc, defaultGoal string, pageSize int, req *ScoreRequest) (*ScoreResult, error) {
	if req == nil || data.NormalizeQuery(req.Query) == "" {
		return nil, fdc.ErrQueryRequired
	}

	goalName := req.Goal
	if goalName == "" {
		goalName = defaultGoal
	}
	goal, err := nutrition.ParseGoal(goalName)
	if err != nil {
		return nil, err
	}

	tee, err := nutrition.TEE(req.Person)
	if err != nil {
		return nil, err
	}
	targets := nutrition.MealTargets(tee)

	res := &ScoreResult{
		Query:   data.NormalizeQuery(req.Query),
		Goal:    goal,
		Person:  req.Person,
		TEE:     tee,
		Targets: targets,
	}

	limit := req.Limit
	if limit <= 0 {
		limit = pageSize
	}

	var profiles []*nutrition.Profile
	if !req.Refresh {
		if profiles, err = store.GetSearchFoods(ctx, req.Query, limit); err != nil {
			return nil, fmt.Errorf("reading cached foods: %w", err)
		}
	}

	if len(profiles) == 0 {
		if newClient == nil {
			return nil, errors.New("no cached foods for query and no API client")
		}
		client, err := newClient()
		if err != nil {
			return nil, err
		}
		if res.Import, profiles, err = importFoods(ctx, client, store, req.Query, limit); err != nil {
			return nil, err
		}
	} else {
		slog.Debug("scoring cached foods", "query", res.Query, "foods", len(profiles))
	}

	if res.Foods, err = nutrition.ScoreMenu(profiles, targets, tee, goal); err != nil {
		return nil, err
	}
	metrics.RecordMenuScored(string(goal))

	if req.Top > 0 && len(res.Foods) > req.Top {
		res.Foods = res.Foods[:req.Top]
	}
	return res, nil
}
