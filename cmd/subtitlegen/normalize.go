package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skypro1111/subtitle-pipeline/internal/config"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
	"github.com/skypro1111/subtitle-pipeline/internal/textnorm"
)

var normalizeInPlaceOutput string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <input>",
	Short: "Normalize and re-flow an existing subtitle file",
	Long: `Normalize imports a subtitle file, cleans up the segment text, then
re-runs splitting, reading time reconciliation and merging with the
configured limits. The result is written back in the same format.`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeInPlaceOutput, "output", "o", "", "output path (default: overwrite input)")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := initLogger(cfg.Logging)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	importer := subtitle.NewImporter(logger)
	format, ok := importer.DetectFormat(data, inputPath)
	if !ok {
		return fmt.Errorf("unrecognized subtitle format: %s", inputPath)
	}

	segments := importer.Import(data, inputPath)
	if len(segments) == 0 {
		logger.Warn("No segments imported", slog.String("input", inputPath))
	}

	normalizer := textnorm.NewNormalizer(nil, logger)
	for i := range segments {
		segments[i].Text = normalizer.Normalize(segments[i].Text)
	}

	post, err := subtitle.NewPostProcessor(subtitle.PostProcessorConfig{
		MaxSegmentChars:       cfg.Subtitle.MaxSegmentChars,
		WordsPerMinute:        cfg.Subtitle.WordsPerMinute,
		MaxSubtitleDurationMs: int64(cfg.Subtitle.MaxDuration * 1000),
		MergeGapMs:            int64(cfg.Subtitle.MergeGap * 1000),
	})
	if err != nil {
		return fmt.Errorf("failed to create post-processor: %w", err)
	}
	processed := post.Process(segments)

	output, err := subtitle.Export(processed, format)
	if err != nil {
		return fmt.Errorf("failed to export subtitles: %w", err)
	}

	outputPath := normalizeInPlaceOutput
	if outputPath == "" {
		outputPath = inputPath
	}
	if err := os.WriteFile(outputPath, output, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("Normalization complete",
		slog.String("output", outputPath),
		slog.Int("segments_in", len(segments)),
		slog.Int("segments_out", len(processed)),
	)
	return nil
}
