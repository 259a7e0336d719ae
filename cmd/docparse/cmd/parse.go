package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docparse-io/docparse/internal/client"
	"github.com/docparse-io/docparse/internal/pagepool"
	"github.com/docparse-io/docparse/internal/parser"
)

// parseCmd represents the parse command.
var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Convert one document to Markdown",
	Long: `Convert a single PDF, DOCX, PPTX, or Markdown file to LLM-ready
Markdown. By default the conversion runs in-process; --remote sends the
file to a running docparse server instead.

Examples:
  docparse parse report.pdf
  docparse parse slides.pptx --output slides.md
  docparse parse report.pdf --remote
  docparse parse scan.docx --no-ocr`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	cfg := GetConfig()

	data, err := os.ReadFile(filePath) //nolint:gosec // user-supplied CLI path
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	fileName := filepath.Base(filePath)

	opts := parser.DefaultOptions()
	if noOCR, _ := cmd.Flags().GetBool("no-ocr"); noOCR {
		opts.EnableOCR = false
	}
	if lang, _ := cmd.Flags().GetString("language"); lang != "" {
		opts.Language = lang
	}

	var result parser.ParseResult
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		result, err = client.New(cfg.Client).ParseFile(cmd.Context(), fileName, data, opts)
	} else {
		result, err = parseLocally(cmd, fileName, data, opts)
	}
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := os.WriteFile(output, []byte(result.Content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		slog.Info("wrote markdown", "path", output)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), result.Content)
	}

	slog.Info("parse completed",
		"pages", result.Metadata.PageCount,
		"images", result.Metadata.ImageCount,
		"tables", result.Metadata.TableCount,
		"ocr", result.Metadata.OCRCount,
		"duration_ms", result.Metadata.ParseTimeMS)
	return nil
}

// parseLocally runs the document through an in-process parser. A missing
// OCR model downgrades to a text-only parse instead of failing.
func parseLocally(cmd *cobra.Command, fileName string, data []byte, opts parser.Options) (parser.ParseResult, error) {
	cfg := GetConfig()

	pagePool := pagepool.New(pagepool.SizeFor(cfg.PagePool))
	defer pagePool.Shutdown()

	docParser := parser.New(pagePool, nil, "")
	if opts.EnableOCR {
		ocrPool, err := buildOCRPool(cfg.OCR)
		if err != nil {
			slog.Warn("ocr unavailable, continuing without recognition", "error", err)
		} else {
			defer ocrPool.Shutdown()
			docParser.SetOCRPool(ocrPool)
		}
	}

	return docParser.Parse(cmd.Context(), fileName, data, opts)
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringP("output", "o", "", "write Markdown to this file instead of stdout")
	parseCmd.Flags().Bool("remote", false, "send the file to a running docparse server")
	parseCmd.Flags().Bool("no-ocr", false, "skip OCR of embedded images")
	parseCmd.Flags().String("language", "", "OCR language hint")
}
