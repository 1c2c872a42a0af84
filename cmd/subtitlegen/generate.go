package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/skypro1111/subtitle-pipeline/internal/audio"
	"github.com/skypro1111/subtitle-pipeline/internal/config"
	"github.com/skypro1111/subtitle-pipeline/internal/metrics"
	"github.com/skypro1111/subtitle-pipeline/internal/pipeline"
	"github.com/skypro1111/subtitle-pipeline/internal/recognition"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
)

var (
	generateOutput string
	generateFormat string
	metricsAddr    string
)

var generateCmd = &cobra.Command{
	Use:   "generate <input.wav>",
	Short: "Generate subtitles from a WAV file",
	Long: `Generate runs the full pipeline over a 16-bit PCM WAV file: chunking,
voice activity detection, speech recognition, text normalization, speaker
attribution and segment post-processing.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output path (default: <input>.<format>)")
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "srt", "output format: srt, vtt, ass, json")
	generateCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := initLogger(cfg.Logging)
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", configPath),
		slog.String("input", inputPath),
	)

	format := subtitle.Format(strings.ToLower(generateFormat))
	switch format {
	case subtitle.FormatSRT, subtitle.FormatVTT, subtitle.FormatASS, subtitle.FormatJSON:
	default:
		return fmt.Errorf("unsupported output format: %s", generateFormat)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	samples, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("failed to decode WAV file: %w", err)
	}
	if sampleRate != cfg.Audio.SampleRate {
		return fmt.Errorf("input sample rate %d does not match configured %d", sampleRate, cfg.Audio.SampleRate)
	}
	logger.Info("Audio decoded",
		slog.Int("sample_rate", sampleRate),
		slog.Int("samples", len(samples)),
		slog.Int64("duration_ms", audio.SamplesToMs(len(samples), sampleRate)),
	)

	recognizer, err := recognition.NewHTTPClient(recognition.HTTPClientConfig{
		Endpoint:      cfg.Recognition.Endpoint,
		APIKey:        cfg.Recognition.APIKey,
		SampleRate:    cfg.Audio.SampleRate,
		Timeout:       cfg.Recognition.GetTimeoutDuration(),
		MaxRetries:    cfg.Recognition.MaxRetries,
		MaxConcurrent: cfg.Recognition.MaxConcurrent,
		Model:         cfg.Recognition.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create recognition client: %w", err)
	}

	appMetrics := metrics.NewMetrics()
	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("Metrics server failed", slog.String("error", err.Error()))
			}
		}()
		logger.Info("Prometheus metrics exposed", slog.String("address", metricsAddr))
	}

	// Only the recognizer is wired here. Embedding extraction and
	// translation are library-level capabilities with no bundled backend,
	// so the speaker and translation config sections have no effect in
	// this command.
	p, err := pipeline.New(cfg.PipelineConfig(), pipeline.Deps{Recognizer: recognizer}, appMetrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := p.GenerateSubtitles(ctx, samples)
	if !result.Success {
		logger.Warn("Generation finished with errors",
			slog.String("error", result.Error),
			slog.Int("segments", len(result.Segments)),
		)
	}

	output, err := subtitle.Export(result.Segments, format)
	if err != nil {
		return fmt.Errorf("failed to export subtitles: %w", err)
	}

	outputPath := generateOutput
	if outputPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outputPath = base + "." + string(format)
	}
	if err := os.WriteFile(outputPath, output, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	stats := recognizer.GetStats()
	logger.Info("Generation complete",
		slog.String("output", outputPath),
		slog.Int("segments", len(result.Segments)),
		slog.Int("chunks_processed", result.ChunksProcessed),
		slog.Int("chunks_skipped", result.ChunksSkipped),
		slog.Int("speakers", len(result.Speakers)),
		slog.Uint64("recognition_requests", stats.TotalRequests),
		slog.Uint64("recognition_retries", stats.TotalRetries),
	)

	if !result.Success {
		return fmt.Errorf("generation incomplete: %s", result.Error)
	}
	return nil
}
