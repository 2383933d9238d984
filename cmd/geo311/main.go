package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geo311/internal/cases"
	"github.com/joeblew999/geo311/internal/server"
	"github.com/joeblew999/geo311/internal/service"
	"github.com/joeblew999/geo311/internal/wfs"
)

// Options defines all CLI flags and env vars for the geo311 server.
// Flags: --host, --port, --endpoint, --type-name, --page-size, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_ENDPOINT, SERVICE_TYPE_NAME,
// SERVICE_PAGE_SIZE, SERVICE_LOG_LEVEL
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8086"`
	Endpoint string `doc:"WFS endpoint serving the 311 cases" default:"https://geoserver.danielmyers.xyz/geoserver/census/ows"`
	TypeName string `doc:"WFS feature type name" default:"census:castro_311"`
	PageSize int    `doc:"Features requested per GetFeature page" default:"1000"`
	LogLevel string `doc:"Log level (trace, debug, info, warn, error)" default:"info"`
}

func serverConfig(opts *Options) server.Config {
	return server.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		Endpoint: opts.Endpoint,
		TypeName: opts.TypeName,
		PageSize: opts.PageSize,
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		log := server.NewLogger(opts.LogLevel)
		srv := server.New(serverConfig(opts), log)
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info().
				Str("addr", httpServer.Addr).
				Str("docs", baseURL+"/docs").
				Str("openapi", baseURL+"/openapi.json").
				Str("endpoint", opts.Endpoint).
				Str("type_name", opts.TypeName).
				Msg("geo311 server starting")

			// Derived endpoints answer 503 until the first load lands.
			go func() {
				if err := srv.Load(context.Background()); err != nil {
					log.Error().Err(err).Msg("initial load failed; POST /api/v1/reload to retry")
				}
			}()

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("shutdown")
			}
			if err := srv.Close(); err != nil {
				log.Error().Err(err).Msg("close server resources")
			}
		})
	})

	cli.Root().Use = "geo311"
	cli.Root().Short = "Map pipeline for municipal 311 service requests"
	cli.Root().Version = server.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg := serverConfig(opts)
			cfg.NoDB = true
			srv := server.New(cfg, server.NewLoggerTo(os.Stderr, "error"))
			defer srv.Close()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			if err := printValue(srv.OpenAPI(), useYAML); err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// load subcommand: paginate once and print the summary
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch every case once and print stats and category rankings",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := server.NewLoggerTo(os.Stderr, opts.LogLevel)
			client := wfs.NewClient(wfs.Query{Endpoint: opts.Endpoint, TypeName: opts.TypeName}, nil, log)
			fc, err := wfs.NewPaginator(client, opts.PageSize, log, nil).LoadAll(cmd.Context())
			if err != nil {
				log.Error().Err(err).Msg("load failed")
				os.Exit(1)
			}

			top, _ := cmd.Flags().GetInt("top")
			stats, ranking := cases.Summarize(fc)
			summary := service.SummaryBody{Stats: stats, Categories: cases.TopCategories(ranking, top)}

			useYAML, _ := cmd.Flags().GetBool("yaml")
			if err := printValue(summary, useYAML); err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling summary: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	loadCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	loadCmd.Flags().IntP("top", "n", 0, "Only print the N largest categories (0 for all)")
	cli.Root().AddCommand(loadCmd)

	cli.Run()
}

func printValue(v any, useYAML bool) error {
	var output []byte
	var err error
	if useYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
