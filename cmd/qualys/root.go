package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/go-qualys"
	"github.com/tphakala/go-qualys/internal/config"
	"github.com/tphakala/go-qualys/internal/logging"
)

// skipClient marks commands that run without credentials.
const skipClient = "qualys/skip-client"

// app carries state shared by every command of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	v          *viper.Viper
	configPath string
	output     string

	cfg    *config.Config
	logger *logrus.Logger
	client *qualys.Client

	// extra client options, appended after the configured ones
	clientOpts []qualys.ClientOption
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, v: config.New()}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qualys",
		Short: "Query the Qualys API",
		Long: `qualys calls Qualys API endpoints through the go-qualys client.

Credentials and hosts come from qualys.yaml, QUALYS_* environment variables,
or flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(a.output); err != nil {
				return err
			}
			if cmd.Annotations[skipClient] == "true" {
				return nil
			}
			return a.setup()
		},
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default qualys.yaml in ., ~/.config/qualys, /etc/qualys)")
	flags.StringVarP(&a.output, "output", "o", formatJSON, "output format: json or yaml")
	flags.String("platform", "", "Qualys platform identifier, e.g. qg2")
	flags.String("api-url", "", "API base URL, overrides the platform")
	flags.String("gateway-url", "", "gateway base URL, overrides the platform")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	for key, flag := range map[string]string{
		"platform":    "platform",
		"api_url":     "api-url",
		"gateway_url": "gateway-url",
		"log_level":   "log-level",
		"log_format":  "log-format",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		newEndpointsCommand(a),
		newCallCommand(a),
		newHostsCommand(a),
		newAssetsCommand(a),
		newFindingsCommand(a),
	)
	return cmd
}

// setup loads configuration and builds the logger and client.
func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(a.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	opts := []qualys.ClientOption{
		qualys.WithLogger(logger),
		qualys.WithTimeout(cfg.Timeout),
		qualys.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	}
	if cfg.Platform != "" {
		opts = append(opts, qualys.WithPlatform(cfg.Platform))
	}
	if cfg.APIURL != "" {
		opts = append(opts, qualys.WithBaseURL(cfg.APIURL))
	}
	if cfg.GatewayURL != "" {
		opts = append(opts, qualys.WithGatewayURL(cfg.GatewayURL))
	}
	if cfg.Username != "" {
		opts = append(opts, qualys.WithBasicAuth(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, qualys.WithToken(cfg.Token))
	}
	opts = append(opts, a.clientOpts...)

	client, err := qualys.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.client = client
	logger.WithFields(logrus.Fields{
		"api":     client.APIBaseURL(),
		"gateway": client.GatewayBaseURL(),
	}).Debug("client ready")
	return nil
}

// print writes v in the selected output format.
func (a *app) print(v any) error {
	return writeOutput(a.out, a.output, v)
}
