package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-qualys/internal/schema"
)

type endpointInfo struct {
	Module     string   `json:"module"`
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Methods    []string `json:"methods"`
	Auth       string   `json:"auth"`
	Format     string   `json:"format"`
	Paginated  bool     `json:"paginated"`
	Parameters []string `json:"parameters,omitempty"`
}

func newEndpointsCommand(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:         "endpoints [module]",
		Short:       "List modules, or the endpoints of one module",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipClient: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := schema.Default()
			if len(args) == 0 {
				return a.print(reg.Modules())
			}

			contracts := reg.Endpoints(args[0])
			if len(contracts) == 0 {
				return fmt.Errorf("%w: module %q", schema.ErrUnknownEndpoint, args[0])
			}
			out := make([]endpointInfo, 0, len(contracts))
			for _, c := range contracts {
				info := endpointInfo{
					Module:    c.Module,
					Name:      c.Name,
					Path:      c.URLTemplate,
					Methods:   c.Methods,
					Auth:      string(c.AuthMode),
					Format:    string(c.ResponseFormat),
					Paginated: c.Paginated,
				}
				if verbose {
					info.Parameters = c.ParamNames()
				}
				out = append(out, info)
			}
			return a.print(out)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "params", "p", false, "include accepted parameter names")
	return cmd
}
