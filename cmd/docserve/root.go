package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buildwithgo/docserve/config"
	"github.com/buildwithgo/docserve/description"
	"github.com/buildwithgo/docserve/docsui"
	"github.com/buildwithgo/docserve/logging"
	"github.com/buildwithgo/docserve/server"
)

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "docserve",
		Short: "Serve interactive documentation for an API description",
		Long: `Serve interactive documentation for an OpenAPI or Swagger description file.

The description is loaded once at startup; the server refuses to start if it
is missing or malformed. GET / redirects to the documentation path.`,
		Example: `  # Serve ./swagger.yaml on :3000 at /api-docs
  docserve

  # Different file, port and renderer
  docserve -f api/openapi.json --port 8080 --renderer scalar`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.LoadEnvFiles(".env.local", ".env")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String(config.KeyConfig, "", "Config file (default ./.docserve.yaml)")
	pf.StringP(config.KeyDescription, "f", config.DefaultDescription, "API description file (YAML or JSON)")
	pf.String(config.KeyLogLevel, "info", "Log level (trace, debug, info, warn, error)")
	pf.String(config.KeyLogFormat, "console", "Log format (console, json)")

	f := cmd.Flags()
	f.Int(config.KeyPort, config.DefaultPort, "Port to listen on")
	f.String(config.KeyHost, "", "Address to bind (default all interfaces)")
	f.String(config.KeyDocsPath, config.DefaultDocsPath, "Path the documentation is served at")
	f.String(config.KeyRenderer, config.DefaultRenderer,
		"Documentation UI ("+strings.Join(docsui.Renderers(), ", ")+")")
	f.String(config.KeyTitle, "", "Page title (default: info.title of the description)")
	f.String(config.KeyAssetsDir, "", "Directory served under <docs-path>/assets")
	f.StringSlice(config.KeyCORSOrigins, nil, "Origins allowed to fetch the docs (comma-separated)")
	f.Bool(config.KeyCompress, true, "Gzip responses when the client accepts it")
	f.String(config.KeyBasicAuth, "", "Protect the docs with basic auth (user:password)")
	f.String(config.KeyJWTSecret, "", "Protect the docs with HS256 bearer tokens signed with this secret")
	f.String(config.KeyJWTPublicKey, "", "Protect the docs with RS256 bearer tokens verified by this PEM public key")
	f.Int(config.KeyMaxConnections, 0, "Maximum simultaneous connections (0 for unlimited)")
	f.Duration(config.KeyShutdownTimeout, config.DefaultShutdownTimeout, "Graceful shutdown timeout")

	cmd.AddCommand(newValidateCommand(v), newVersionCommand())
	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: cmd.ErrOrStderr(),
	})
	if cfg.ConfigFile != "" {
		logger.Debug().Str("file", cfg.ConfigFile).Msg("Config file loaded")
	}

	srv, err := server.Open(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		return &loggedError{err: err}
	}
	return srv.Run(cmd.Context())
}

func newValidateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the API description and report what was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			doc, err := description.Load(cfg.Description)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s %s\n", doc.Path, doc.Header.Standard, doc.Header.StandardVersion)
			fmt.Fprintf(out, "title: %s\n", doc.Title())
			if doc.Header.Info.Version != "" {
				fmt.Fprintf(out, "version: %s\n", doc.Header.Info.Version)
			}
			fmt.Fprintf(out, "paths: %d\n", doc.Header.PathCount)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docserve version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "go version: %s\n", runtime.Version())
		},
	}
}
