package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/app"
	"github.com/xxxsen/docqa/internal/client"
	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/exportstore"
	"github.com/xxxsen/docqa/internal/handler"
	"github.com/xxxsen/docqa/internal/pkg/errcode"
	"github.com/xxxsen/docqa/internal/schedule"
	"github.com/xxxsen/docqa/internal/service"
	"github.com/xxxsen/docqa/internal/suggestcache"
	"github.com/xxxsen/docqa/internal/tokenstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Upload documents and ask questions about them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config.json")

	handler.RegisterCommands(rootCmd, func() (*handler.Deps, error) {
		return buildDeps(configPath)
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Error("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %s\n", handler.Describe(err))
		os.Exit(errcode.FromError(err))
	}
}

func buildDeps(configPath string) (*handler.Deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info(
		"config loaded",
		zap.String("config", configPath),
		zap.String("base_url", cfg.BaseURL),
		zap.String("token_store", cfg.TokenStore.Type),
		zap.String("export_store", cfg.ExportStore.Type),
	)

	tokens, err := tokenstore.New(cfg.TokenStore)
	if err != nil {
		return nil, fmt.Errorf("init token store: %w", err)
	}
	var opts []client.Option
	if cfg.RequestTimeoutSeconds > 0 {
		opts = append(opts, client.WithTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second))
	}
	cl := client.New(cfg.BaseURL, tokens, opts...)

	prompt := handler.NewPrompter(os.Stdin, os.Stdout, os.Stderr)
	auth := service.NewAuthService(cl, tokens)
	library := service.NewLibraryService(cl, prompt, prompt)
	suggestions := suggestcache.WrapLruCache(cl, cfg.SuggestionCache.Size, time.Duration(cfg.SuggestionCache.TTLSeconds)*time.Second)
	coord := app.NewCoordinator(auth, library, cl, suggestions, prompt)

	exports, err := exportstore.New(cfg.ExportStore)
	if err != nil {
		return nil, fmt.Errorf("init export store: %w", err)
	}
	return &handler.Deps{
		Coordinator: coord,
		Uploads: func() *service.UploadControl {
			return service.NewUploadControl(cl, cfg.Upload.MaxBytes)
		},
		Exports:   service.NewExportService(exports),
		Scheduler: schedule.NewCronScheduler(),
		Refresh:   cfg.Refresh,
		Prompt:    prompt,
	}, nil
}
