package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tphakala/go-qualys"
)

func newCallCommand(a *app) *cobra.Command {
	var (
		pages     int
		method    string
		requestID string
	)
	cmd := &cobra.Command{
		Use:   "call <module> <endpoint> [name=value ...]",
		Short: "Call any registered endpoint with raw parameters",
		Long: `call validates the parameters against the endpoint contract, sends the request,
follows pagination up to --pages pages (0 for all), and prints the records.

Repeat a name to pass a list. An empty value (name=) removes a default.`,
		Example: `  qualys call vmdr get_host_list ids=10-20 show_tags=1
  qualys call was get_findings severity=4 severity_operator=greater --pages 0`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[2:])
			if err != nil {
				return err
			}

			var opts []qualys.RequestOption
			if method != "" {
				opts = append(opts, qualys.WithMethod(method))
			}
			if requestID != "" {
				opts = append(opts, qualys.WithRequestID(requestID))
			}

			res, err := qualys.ExecutePaginated(cmd.Context(), a.client, args[0], args[1], pages, params, qualys.RawRecord, opts...)
			if err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"records": res.Len(),
				"pages":   res.Pages(),
				"reason":  res.Reason(),
			}).Info("call finished")
			return a.print(res.Items())
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "maximum pages to fetch, 0 for all")
	cmd.Flags().StringVar(&method, "method", "", "HTTP method override, must be allowed by the endpoint")
	cmd.Flags().StringVar(&requestID, "request-id", "", "X-Request-ID header value")
	return cmd
}

// parseParams turns name=value arguments into call parameters. Repeated names
// collect into a list; an empty value maps to nil.
func parseParams(args []string) (qualys.Params, error) {
	params := make(qualys.Params, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q: want name=value", arg)
		}

		prev, seen := params[name]
		switch {
		case !seen && value == "":
			params[name] = nil
		case !seen:
			params[name] = value
		default:
			switch p := prev.(type) {
			case []string:
				params[name] = append(p, value)
			case string:
				params[name] = []string{p, value}
			default:
				return nil, fmt.Errorf("parameter %q: cannot combine an empty value with others", name)
			}
		}
	}
	return params, nil
}
