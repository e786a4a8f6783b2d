package main

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-qualys"
)

func newAssetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Global AssetView inventory",
	}
	cmd.AddCommand(newAssetsCountCommand(a), newAssetsListCommand(a))
	return cmd
}

func newAssetsCountCommand(a *app) *cobra.Command {
	var opts qualys.AssetCountOptions
	cmd := &cobra.Command{
		Use:     "count",
		Short:   "Count assets matching a filter",
		Example: `  qualys assets count --filter asset.tag:prod`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.Assets.Count(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			return a.print(map[string]int{"count": n})
		},
	}
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression key:value, e.g. asset.name:web01")
	cmd.Flags().StringVar(&opts.LastModifiedDate, "modified-since", "", "only assets modified after this date")
	return cmd
}

func newAssetsListCommand(a *app) *cobra.Command {
	var (
		opts  qualys.AssetListOptions
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := qualys.Collect(qualys.Take(a.client.Assets.List(cmd.Context(), &opts), limit))
			if err != nil {
				return err
			}
			return a.print(assets)
		},
	}
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression key:value")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 100, "assets per page, at most 300")
	cmd.Flags().StringSliceVar(&opts.IncludeFields, "fields", nil, "fields to include")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum assets to print")
	return cmd
}
