package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/nutctl/pkg/data"
	"github.com/mchmarny/nutctl/pkg/fdc"
	"github.com/mchmarny/nutctl/pkg/nutrition"
	"github.com/urfave/cli/v3"
)

var (
	queryFlag = &cli.StringFlag{
		Name:     "query",
		Aliases:  []string{"q"},
		Usage:    "Food search query (e.g. \"greek yogurt\")",
		Required: true,
	}

	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: fmt.Sprintf("Max number of search results (default: config page_size, max: %d)", fdc.MaxPageSize),
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Search FoodData Central, fetch food details, and cache their nutrient profiles",
		UsageText: `nutctl import --query "greek yogurt"              # import up to page_size results
   nutctl import --query "brown rice" --limit 20       # import top 20 results`,
		Action: cmdImport,
		Flags: []cli.Flag{
			queryFlag,
			limitFlag,
		},
	}
)

// ImportResult summarizes one import run.
type ImportResult struct {
	RunID    string `json:"run_id" yaml:"runId"`
	Query    string `json:"query" yaml:"query"`
	Found    int    `json:"found" yaml:"found"`
	Fetched  int    `json:"fetched" yaml:"fetched"`
	Saved    int    `json:"saved" yaml:"saved"`
	Duration string `json:"duration" yaml:"duration"`
}

func cmdImport(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.String(queryFlag.Name))
	if query == "" {
		return cli.ShowSubcommandHelp(cmd)
	}

	client, err := newFDCClient(cmd)
	if err != nil {
		return err
	}

	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	limit := cmd.Int(limitFlag.Name)
	if limit <= 0 {
		limit = getConfig(cmd).Config.PageSize
	}

	res, _, err := importFoods(ctx, client, store, query, limit)
	if err != nil {
		return err
	}
	return encode(cmd, res)
}

// importFoods searches, fetches details, and stores the profiles along with
// the search result order.
func importFoods(ctx context.Context, client *fdc.Client, store *data.Store, query string, limit int) (*ImportResult, []*nutrition.Profile, error) {
	start := time.Now()
	res := &ImportResult{
		RunID: uuid.NewString(),
		Query: data.NormalizeQuery(query),
	}
	log := slog.With("run", res.RunID)

	ids, err := client.SearchIDs(ctx, query, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("searching foods: %w", err)
	}
	res.Found = len(ids)
	log.Debug("search complete", "query", res.Query, "found", res.Found)

	foods, err := client.GetFoods(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching food details: %w", err)
	}
	res.Fetched = len(foods)

	profiles := nutrition.ExtractAll(foods)
	saved, err := store.SaveFoods(ctx, profiles)
	if err != nil {
		return nil, nil, fmt.Errorf("saving foods: %w", err)
	}
	res.Saved = saved

	kept := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		kept = append(kept, p.FDCID)
	}
	if err := store.SaveSearch(ctx, query, kept); err != nil {
		return nil, nil, fmt.Errorf("saving search: %w", err)
	}

	res.Duration = time.Since(start).String()
	log.Info("import complete", "query", res.Query, "found", res.Found, "saved", res.Saved, "duration", res.Duration)

	return res, profiles, nil
}
