package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vulnwatch/vulnwatch/internal/enrich"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

var (
	enrichJSON    bool
	enrichTimeout time.Duration
)

var enrichCmd = &cobra.Command{
	Use:   "enrich CVE-ID [CVE-ID...]",
	Short: "Enrich one or more CVEs with exploitation intelligence",
	Long: `Fetch CVE records from the NVD and enrich them with KEV catalog
membership, EPSS exploit probability, and public exploit evidence.

Example:
  vulnwatch enrich CVE-2021-44228
  vulnwatch enrich CVE-2021-44228 CVE-2023-23397 --json
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().BoolVar(&enrichJSON, "json", false, "Emit raw JSON instead of formatted output")
	enrichCmd.Flags().DurationVar(&enrichTimeout, "timeout", 2*time.Minute, "Overall deadline for the batch")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ids := make([]string, len(args))
	for i, arg := range args {
		id := strings.ToUpper(strings.TrimSpace(arg))
		if err := nvd.ValidateCVEID(id); err != nil {
			return err
		}
		ids[i] = id
	}

	svc := buildServices()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	results := make([]*enrich.Result, 0, len(ids))
	for _, id := range ids {
		result, err := svc.advisory.ByID(ctx, id)
		if err != nil {
			return fmt.Errorf("enrichment failed for %s: %w", id, err)
		}
		if result == nil {
			color.Yellow("%s: not found in NVD\n", id)
			continue
		}
		results = append(results, result)
	}

	if enrichJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	for _, result := range results {
		printResult(result)
	}
	return nil
}

func printResult(r *enrich.Result) {
	severityColor(r.SeverityLabel()).Printf("\n%s", r.ID)
	if label := r.SeverityLabel(); label != "" {
		fmt.Printf("  [%s", label)
		if score := r.Score(); score != nil {
			fmt.Printf(" %.1f", *score)
		}
		fmt.Print("]")
	}
	fmt.Println()

	if desc := r.PrimaryDescription(); desc != "" {
		fmt.Printf("  %s\n", truncate(desc, 160))
	}

	fmt.Printf("  Confidence:    %s\n", r.ConfidenceLevel)
	fmt.Printf("  Synth score:   %d/100\n", r.Profile.SynthScore)
	fmt.Printf("  EPSS:          %.4f (percentile %.4f)\n", r.EPSSScore, r.EPSSPercentile)

	if r.IsExploited {
		color.Red("  KEV listed:    yes (added %s, due %s)\n", r.ExploitAdded, r.ActionDue)
	} else {
		fmt.Println("  KEV listed:    no")
	}
	if r.ActivelyExploited {
		color.Red("  Actively exploited in the wild\n")
	}

	if r.ExploitPublic {
		color.Yellow("  Public exploit evidence (%d items):\n", len(r.Evidence))
		for _, item := range r.Evidence {
			url := item.URL
			if url == "" {
				url = item.Permalink
			}
			fmt.Printf("    - %-12s %s\n", item.Source, url)
		}
	} else {
		fmt.Println("  Public exploit evidence: none found")
	}

	if len(r.Profile.Tags) > 0 {
		fmt.Printf("  Tags:          %s\n", strings.Join(r.Profile.Tags, ", "))
	}
}

func severityColor(label string) *color.Color {
	switch strings.ToUpper(label) {
	case "CRITICAL":
		return color.New(color.FgRed, color.Bold)
	case "HIGH":
		return color.New(color.FgRed)
	case "MEDIUM":
		return color.New(color.FgYellow)
	case "LOW":
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
