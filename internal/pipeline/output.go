package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dkazmin/normcheck/internal/refs"
	"github.com/dkazmin/normcheck/internal/validator"
)

// OutputReport writes the report to stdout in the configured format.
func (p *Pipeline) OutputReport(report *Report) error {
	switch p.config.OutputFormat {
	case "json":
		return outputJSON(report)
	case "human", "":
		return outputHuman(report)
	default:
		return fmt.Errorf("unsupported output format: %s", p.config.OutputFormat)
	}
}

func outputJSON(report *Report) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	return encoder.Encode(report)
}

var (
	activeColor  = color.New(color.FgGreen)
	expiredColor = color.New(color.FgRed)
	unknownColor = color.New(color.FgYellow)
	labelColor   = color.New(color.Bold)
)

func outputHuman(report *Report) error {
	labelColor.Printf("References: %d", len(report.References))
	if len(report.Skipped) > 0 {
		fmt.Printf(" (%d skipped, missing required fields)", len(report.Skipped))
	}
	fmt.Println()

	for i, vr := range report.References {
		fmt.Printf("%3d. %s\n", i+1, describeReference(vr.Reference))
		printVerdict(vr.Verdict)
	}

	if len(report.Skipped) > 0 {
		fmt.Println()
		labelColor.Println("Skipped (not validatable):")
		for _, ref := range report.Skipped {
			fmt.Printf("   - %s (missing: %s)\n",
				describeReference(ref), strings.Join(ref.MissingFields(), ", "))
		}
	}

	fmt.Println()
	fmt.Printf("Unknown after validation: %d\n", report.UnknownCount)
	if report.Escalated {
		fmt.Println("Browser escalation: performed")
	}
	if report.Extraction.LLMReferences > 0 {
		fmt.Printf("LLM-assisted extractions: %d\n", report.Extraction.LLMReferences)
	}
	fmt.Printf("Processing time: %v\n", report.ProcessTime.Round(time.Millisecond))

	for _, warning := range report.Warnings {
		unknownColor.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	return nil
}

func printVerdict(verdict *validator.Verdict) {
	if verdict == nil {
		fmt.Println("     status: not checked")
		return
	}

	fmt.Print("     status: ")
	statusColor(verdict.Status).Print(string(verdict.Status))
	fmt.Printf("  confidence: %.2f", verdict.Confidence)
	if verdict.Source != "" {
		fmt.Printf("  source: %s", verdict.Source)
	}
	fmt.Println()
}

func statusColor(status validator.Status) *color.Color {
	switch status {
	case validator.StatusActive:
		return activeColor
	case validator.StatusExpired:
		return expiredColor
	default:
		return unknownColor
	}
}

// describeReference renders a reference on one line: type, number, date, and
// a truncated title.
func describeReference(ref refs.Reference) string {
	var b strings.Builder

	b.WriteString(ref.Type)
	if ref.Number != "" {
		b.WriteString(" № ")
		b.WriteString(ref.Number)
	}
	if ref.Date != "" {
		b.WriteString(" от ")
		b.WriteString(ref.Date)
	}
	if ref.Title != "" {
		title := ref.Title
		if runes := []rune(title); len(runes) > 60 {
			title = string(runes[:60]) + "..."
		}
		b.WriteString(" «")
		b.WriteString(title)
		b.WriteString("»")
	}

	return b.String()
}
