package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/docembed/internal/models"
	"github.com/xhad/docembed/server"
)

func serveCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to config file")
	addr := flags.String("addr", "", "Listen address (overrides server.addr)")
	flags.Parse(args)

	cfg, err := loadConfig(*configPath, true)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := newLogger(cfg)
	p, err := buildPipeline(ctx, cfg, logger, true)
	if err != nil {
		return err
	}

	srv := server.NewServer(server.Config{
		MaxUploadBytes: cfg.Processor.MaxUploadBytes,
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		CORSOrigins:    cfg.Server.CORSOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, p, logger)

	logger.Info("embedding provider configured", "provider", cfg.Provider.Type, "model", cfg.Provider.Model)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func embedCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to config file")
	asJSON := flags.Bool("json", false, "Print the full result as JSON")
	flags.Parse(args)

	if flags.NArg() != 1 {
		return fmt.Errorf("usage: docembed embed [options] <file>")
	}

	cfg, err := loadConfig(*configPath, true)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	doc, err := readDocument(flags.Arg(0))
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, cfg, logger, true)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !*asJSON {
		color.Blue("\nEmbedding %s with %s\n", doc.Name(), cfg.Provider.Model)
	}

	startTime := time.Now()
	result, err := p.RunWithProgress(ctx, doc, func(done, total int) {
		if *asJSON {
			return
		}
		if bar == nil {
			bar = getProgressBar(total, "Embedding chunks")
		}
		bar.Set(done)

		elapsed := time.Since(startTime).Seconds()
		bar.Describe(color.BlueString("Embedding chunks (%.1f chunks/sec)", float64(done)/elapsed))
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("failed to embed %s: %w", doc.Name(), err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	dim := 0
	if len(result.Embeddings) > 0 {
		dim = len(result.Embeddings[0].Embedding)
	}
	color.Green("\n✓ Embedded %d chunks (%d tokens, dim %d)\n", result.TotalChunks, result.TotalTokens, dim)
	for _, e := range result.Embeddings {
		fmt.Printf("%s %s\n", color.CyanString("[%d] %d tokens", e.ChunkIndex, e.TokenCount), e.Text)
	}
	return nil
}

func previewCmd(args []string) error {
	flags := flag.NewFlagSet("preview", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to config file")
	flags.Parse(args)

	if flags.NArg() != 1 {
		return fmt.Errorf("usage: docembed preview [options] <file>")
	}

	cfg, err := loadConfig(*configPath, false)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	doc, err := readDocument(flags.Arg(0))
	if err != nil {
		return err
	}

	p, err := buildPipeline(context.Background(), cfg, logger, false)
	if err != nil {
		return err
	}

	spinner := getSpinner("Extracting text...")
	preview, err := p.Preview(doc)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return fmt.Errorf("failed to preview %s: %w", doc.Name(), err)
	}

	color.Green("✓ %s (%s, %d characters)\n", preview.Filename, preview.Format, preview.ContentLength)
	fmt.Println(preview.Preview)
	return nil
}

func readDocument(path string) (models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return models.Document{Filename: filepath.Base(path), Content: content}, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
