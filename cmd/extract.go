package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkazmin/normcheck/internal/refs"
)

var extractLLMModel string

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract normative document references without validating them",
	Long: `Extract runs only the extraction stage: pattern matching, field
enhancement, normalization, and deduplication. Nothing is fetched from the
network unless LLM fallback is enabled.

Examples:
  normcheck extract contract.txt
  normcheck extract -o json contract.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readInput(args[0])
	if err != nil {
		return err
	}

	opts := refs.DefaultExtractionOptions()
	if key := viper.GetString("openai_api_key"); key != "" && extractLLMModel != "" {
		opts.UseLLMFallback = true
		opts.LLMAPIKey = key
		opts.LLMModel = extractLLMModel
	}

	result, err := refs.New(opts).Extract(context.Background(), text)
	if err != nil {
		return fmt.Errorf("failed to extract from %s: %w", args[0], err)
	}

	if output == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)

		return encoder.Encode(result)
	}

	bold := color.New(color.Bold)
	bold.Printf("References: %d\n", len(result.References))

	for i, ref := range result.References {
		fmt.Printf("%3d. [%s] %s\n", i+1, ref.Type, ref.Raw)
		if ref.Number != "" {
			fmt.Printf("     number: %s\n", ref.Number)
		}
		if ref.Date != "" {
			fmt.Printf("     date:   %s\n", ref.Date)
		}
		if ref.Title != "" {
			fmt.Printf("     title:  %s\n", ref.Title)
		}
	}

	fmt.Printf("\nMatches: %d, unique: %d, via LLM: %d, in %v\n",
		result.Summary.TotalMatches,
		result.Summary.UniqueReferences,
		result.Summary.LLMReferences,
		result.ProcessTime)

	for _, warning := range result.Warnings {
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractLLMModel, "llm-model", "", "enable LLM fallback with this model (requires NORMCHECK_OPENAI_API_KEY)")
}
