package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
)

var (
	convertOutput string
	convertFormat string
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a subtitle file to another format",
	Long: `Convert reads an existing subtitle file (SRT, VTT, ASS or JSON) and
writes it out in a different format. Malformed entries are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output path (default: <input>.<format>)")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "srt", "output format: srt, vtt, ass, json")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format := subtitle.Format(strings.ToLower(convertFormat))
	switch format {
	case subtitle.FormatSRT, subtitle.FormatVTT, subtitle.FormatASS, subtitle.FormatJSON:
	default:
		return fmt.Errorf("unsupported output format: %s", convertFormat)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	segments := subtitle.NewImporter(logger).Import(data, inputPath)
	if len(segments) == 0 {
		logger.Warn("No segments imported", slog.String("input", inputPath))
	}

	output, err := subtitle.Export(segments, format)
	if err != nil {
		return fmt.Errorf("failed to export subtitles: %w", err)
	}

	outputPath := convertOutput
	if outputPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outputPath = base + "." + string(format)
	}
	if err := os.WriteFile(outputPath, output, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Printf("Converted %d segments to %s\n", len(segments), outputPath)
	return nil
}
