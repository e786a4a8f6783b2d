package main

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-qualys"
)

func newFindingsCommand(a *app) *cobra.Command {
	var (
		filter      qualys.FindingFilter
		minSeverity int
		limit       int
		count       bool
	)
	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List or count WAS findings",
		Example: `  qualys findings --status active --min-severity 4
  qualys findings --webapp-id 42 --count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count {
				n, err := a.client.Findings.Count(cmd.Context(), &filter)
				if err != nil {
					return err
				}
				return a.print(map[string]int{"count": n})
			}

			seq := a.client.Findings.List(cmd.Context(), &qualys.FindingListOptions{FindingFilter: filter})
			if minSeverity > 0 {
				seq = qualys.Filter(seq, func(f *qualys.Finding) bool {
					return f.Severity >= minSeverity
				})
			}
			findings, err := qualys.Collect(qualys.Take(seq, limit))
			if err != nil {
				return err
			}
			return a.print(findings)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&filter.QID, "qid", 0, "QID")
	f.StringVar(&filter.Type, "type", "", "VULNERABILITY, SENSITIVE_CONTENT or INFORMATION_GATHERED")
	f.StringVar(&filter.Status, "status", "", "NEW, ACTIVE, REOPENED, PROTECTED or FIXED")
	f.Int64Var(&filter.WebAppID, "webapp-id", 0, "web application ID")
	f.StringVar(&filter.WebAppName, "webapp-name", "", "web application name")
	f.IntVar(&minSeverity, "min-severity", 0, "drop findings below this severity")
	f.IntVar(&limit, "limit", 500, "maximum findings to print")
	f.BoolVar(&count, "count", false, "print only the number of matching findings")
	return cmd
}
