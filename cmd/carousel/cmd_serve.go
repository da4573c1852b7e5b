package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/carousel/internal/server"
	"github.com/ivlev/carousel/internal/system"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export pipeline over HTTP",
	Long: `Starts the HTTP service. POST /api/export accepts a project body and
answers with the exported document; GET /healthz reports liveness.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	system.RaiseFileLimit(logger, 8192)

	exp, closeStore, err := buildExporter(cmd.Context(), nil, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	logger.Info("starting export service",
		zap.String("addr", cfg.Server.Addr),
		zap.Int("workers", cfg.Render.Workers),
		zap.String("font_source", cfg.Fonts.Source),
		zap.Duration("timeout", cfg.Server.Timeout),
	)

	srv := server.New(exp, server.Options{
		Timeout:      cfg.Server.Timeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		AllowOrigin:  cfg.Server.AllowOrigin,
		Logger:       logger.Named("http"),
	})
	return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
}
