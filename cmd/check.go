package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkazmin/normcheck/internal/pipeline"
)

var (
	checkNoEscalate bool
	checkCacheDir   string
	checkLLMModel   string
	checkHeadful    bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Extract references from a text file and validate each one",
	Long: `Check reads a text file (or stdin when the argument is "-"), extracts
normative document references, and validates each against public
legal-reference sites. When more than the threshold number of references
stay unresolved, the batch escalates to a browser-driven ГАРАНТ lookup.

Examples:
  normcheck check contract.txt
  normcheck check --no-escalate -o json requirements.txt
  cat report.txt | normcheck check -`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := readInput(args[0])
	if err != nil {
		return err
	}

	config := pipeline.DefaultConfig()
	config.OutputFormat = output
	config.Verbose = verbose && !quiet
	config.Escalate = !checkNoEscalate
	config.CacheDir = defaultCacheDir(checkCacheDir)
	config.Extraction.LLMAPIKey = viper.GetString("openai_api_key")
	config.Extraction.LLMModel = checkLLMModel
	config.Browser.Headless = !checkHeadful

	p := pipeline.New(config)

	report, err := p.Run(context.Background(), text)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", args[0], err)
	}

	if err := p.OutputReport(report); err != nil {
		return fmt.Errorf("failed to output report: %w", err)
	}

	return nil
}

// readInput loads the whole input: a file path, or stdin for "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return string(data), nil
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkNoEscalate, "no-escalate", false, "disable the browser escalation path")
	checkCmd.Flags().StringVar(&checkCacheDir, "cache-dir", "", "result cache directory")
	checkCmd.Flags().StringVar(&checkLLMModel, "llm-model", "", "LLM model for fallback extraction (requires NORMCHECK_OPENAI_API_KEY)")
	checkCmd.Flags().BoolVar(&checkHeadful, "headful", false, "run escalation browsers with a visible window")
}
