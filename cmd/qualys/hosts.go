package main

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-qualys"
)

func newHostsCommand(a *app) *cobra.Command {
	var (
		opts       qualys.HostListOptions
		pages      int
		detections bool
		qids       []string
		severities string
		status     []string
	)
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List VMDR hosts, optionally with their detections",
		Example: `  qualys hosts --ids 10-20 --show-tags
  qualys hosts --detections --severities 4-5 --status New,Active --pages 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !detections {
				res, err := a.client.Hosts.ListPages(cmd.Context(), pages, &opts)
				if err != nil {
					return err
				}
				return a.print(res.Items())
			}

			seq := a.client.Hosts.Detections(cmd.Context(), &qualys.DetectionOptions{
				HostListOptions: opts,
				QIDs:            qids,
				Severities:      severities,
				Status:          status,
			}, qualys.WithPageLimit(pages))
			hosts, err := qualys.Collect(seq)
			if err != nil {
				return err
			}
			return a.print(hosts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.IDs, "ids", "", "host IDs or ranges, e.g. 10-20,35")
	f.StringVar(&opts.IPs, "ips", "", "IPs or ranges")
	f.StringSliceVar(&opts.AssetGroupIDs, "ag-ids", nil, "asset group IDs")
	f.StringVar(&opts.Details, "details", "", "detail level: Basic, Basic/AGs, All, All/AGs, None")
	f.StringVar(&opts.OSPattern, "os-pattern", "", "PCRE pattern matched against the operating system")
	f.BoolVar(&opts.ShowTags, "show-tags", false, "include asset tags")
	f.BoolVar(&opts.ShowAssetID, "show-asset-id", false, "include the asset ID")
	f.IntVar(&pages, "pages", 1, "maximum pages to fetch, 0 for all")
	f.BoolVar(&detections, "detections", false, "list host detections instead of hosts")
	f.StringSliceVar(&qids, "qids", nil, "detection QIDs (with --detections)")
	f.StringVar(&severities, "severities", "", "detection severities, e.g. 4-5 (with --detections)")
	f.StringSliceVar(&status, "status", nil, "detection states (with --detections)")
	return cmd
}
