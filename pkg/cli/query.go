package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

const (
	queryResultLimitDefault = 100
)

var (
	queryLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of result returned",
		Value: queryResultLimitDefault,
	}

	foodLikeFlag = &cli.StringFlag{
		Name:  "like",
		Usage: "Fuzzy search on food description or brand",
	}

	foodIDFlag = &cli.Int64Flag{
		Name:     "id",
		Usage:    "FoodData Central ID",
		Required: true,
	}

	searchQueryFlag = &cli.StringFlag{
		Name:     "query",
		Aliases:  []string{"q"},
		Usage:    "Previously imported search query",
		Required: true,
	}

	queryCmd = &cli.Command{
		Name:            "query",
		Aliases:         []string{"q"},
		HideHelpCommand: true,
		Usage:           "List cached data",
		Commands: []*cli.Command{
			{
				Name:   "foods",
				Usage:  "List cached foods",
				Action: cmdQueryFoods,
				Flags:  []cli.Flag{foodLikeFlag, queryLimitFlag},
			},
			{
				Name:   "food",
				Usage:  "Show a cached food with its radar chart values",
				Action: cmdQueryFood,
				Flags:  []cli.Flag{foodIDFlag},
			},
			{
				Name:   "search",
				Usage:  "List the foods of an imported search in result order",
				Action: cmdQuerySearch,
				Flags:  []cli.Flag{searchQueryFlag, queryLimitFlag},
			},
			{
				Name:   "searches",
				Usage:  "List imported searches",
				Action: cmdQuerySearches,
				Flags:  []cli.Flag{queryLimitFlag},
			},
			{
				Name:   "state",
				Usage:  "Show row counts of the cache",
				Action: cmdQueryState,
			},
		},
	}
)

func cmdQueryFoods(ctx context.Context, cmd *cli.Command) error {
	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	list, err := store.QueryFoods(ctx, cmd.String(foodLikeFlag.Name), cmd.Int(queryLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("querying foods: %w", err)
	}
	return encode(cmd, list)
}

func cmdQueryFood(ctx context.Context, cmd *cli.Command) error {
	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	id := cmd.Int64(foodIDFlag.Name)
	p, err := store.GetFood(ctx, id)
	if err != nil {
		return fmt.Errorf("getting food: %w", err)
	}
	if p == nil {
		return fmt.Errorf("food %d not found, import it first", id)
	}

	return encode(cmd, newFoodView(p))
}

func cmdQuerySearch(ctx context.Context, cmd *cli.Command) error {
	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	list, err := store.GetSearchFoods(ctx, cmd.String(searchQueryFlag.Name), cmd.Int(queryLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("querying search: %w", err)
	}
	return encode(cmd, list)
}

func cmdQuerySearches(ctx context.Context, cmd *cli.Command) error {
	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	list, err := store.ListSearches(ctx, cmd.Int(queryLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("listing searches: %w", err)
	}
	return encode(cmd, list)
}

func cmdQueryState(ctx context.Context, cmd *cli.Command) error {
	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	state, err := store.GetDataState(ctx)
	if err != nil {
		return fmt.Errorf("getting data state: %w", err)
	}
	return encode(cmd, state)
}
