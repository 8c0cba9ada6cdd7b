package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdmtools/patchscope/internal/utils"
	"github.com/mdmtools/patchscope/pkg/baseline"
	"github.com/mdmtools/patchscope/pkg/picker"
	"github.com/mdmtools/patchscope/pkg/report"
	"github.com/mdmtools/patchscope/pkg/storage"
	"github.com/mdmtools/patchscope/pkg/trend"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Baseline compliance report",
	Long: `Builds a per-title compliance report against minimum-version baselines.
Titles come from a file (--titles-file), the interactive picker
(--interactive), or default to the whole catalog. A global default baseline
fills titles that have none of their own, never overriding an explicit one.`,
	Run: func(cmd *cobra.Command, args []string) {
		titlesFile, _ := cmd.Flags().GetString("titles-file")
		interactive, _ := cmd.Flags().GetBool("interactive")
		globalMin, _ := cmd.Flags().GetString("global-min-version")
		outputDir, _ := cmd.Flags().GetString("output")
		org, _ := cmd.Flags().GetString("org")
		dbPath, _ := cmd.Flags().GetString("save-db")
		days, _ := rootCmd.PersistentFlags().GetInt("days")

		// Input validation happens before any network activity.
		var fileSels []baseline.Selection
		if titlesFile != "" {
			var err error
			fileSels, err = baseline.ReadSelectionsFile(titlesFile)
			if err != nil {
				utils.Log.Fatal(err)
			}
		}

		client := newClient(cmd)

		catalog, err := client.ListSoftwareTitles()
		if err != nil {
			utils.Log.Fatal(err)
		}

		// Precedence: file > interactive > full catalog.
		var selections []baseline.Selection
		switch {
		case titlesFile != "":
			selections = baseline.Resolve(fileSels, catalog)
			if len(selections) == 0 {
				utils.Log.Fatal("No valid titles resolved from --titles-file")
			}
		case interactive:
			selections = runPicker(catalog)
			if len(selections) == 0 {
				utils.Log.Fatal("No titles selected in interactive mode")
			}
		default:
			selections = baseline.FromCatalog(catalog)
		}
		selections = baseline.ApplyGlobalDefault(selections, globalMin)

		now := time.Now().UTC()
		var summaries []report.Summary
		nonCompliantByDevice := make(map[string]int)
		deviceLabels := make(map[string]string)

		for _, sel := range selections {
			utils.Log.Info("Fetching patch report for: ", sel.Title)
			rows, err := client.GetPatchReport(sel.ID)
			if err != nil {
				utils.Log.Fatal(err)
			}
			summary, details := report.BuildBaselineSummary(sel, rows, days, now)
			summaries = append(summaries, summary)

			for _, d := range details {
				deviceLabels[d.DeviceID] = d.ComputerName
				if _, seen := nonCompliantByDevice[d.DeviceID]; !seen {
					nonCompliantByDevice[d.DeviceID] = 0
				}
				if !d.Compliant {
					nonCompliantByDevice[d.DeviceID]++
				}
			}

			if err := writeDetailRows(outputDir, sel.Title, details); err != nil {
				utils.Log.Fatal(err)
			}
		}

		reportDate := now.Format("2006-01-02 15:04:05")
		if err := writeReportInfo(outputDir, org, reportDate, days); err != nil {
			utils.Log.Fatal(err)
		}
		if err := writeBaselineSummaries(outputDir, summaries); err != nil {
			utils.Log.Fatal(err)
		}
		printSummaries(summaries)

		if dbPath != "" {
			saveRunSnapshot(dbPath, now.Format("2006-01-02"), nonCompliantByDevice, deviceLabels)
		}

		utils.Log.Info("Report written to: ", outputDir)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addAuthFlags(reportCmd)

	reportCmd.Flags().StringP("titles-file", "f", "", "TXT/CSV/YAML list of titles; CSV/YAML may include min_version")
	reportCmd.Flags().BoolP("interactive", "i", false, "Pick titles interactively and set per-title baselines")
	reportCmd.Flags().StringP("global-min-version", "g", "", "Baseline applied to all titles unless overridden")
	reportCmd.Flags().StringP("output", "o", "patch_report", "Output directory for report CSVs")
	reportCmd.Flags().StringP("org", "", "", "Organization name for report headers")
	reportCmd.Flags().StringP("save-db", "", "", "Also record this run's per-device failure counts in a sqlite snapshot store")
}

// runPicker drives the picker state machine over stdin.
func runPicker(catalog []baseline.Title) []baseline.Selection {
	fmt.Println("\nInteractive Title Picker")
	fmt.Println("------------------------")
	fmt.Println("Type search text to filter, or type: all | done | ?")
	fmt.Println("Select by numbers/ranges (e.g., 1,2,5-8).")

	state, effect := picker.New(catalog)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		for _, line := range effect.Output {
			fmt.Println(line)
		}
		if state.Phase == picker.Done {
			return state.Selected
		}
		if effect.Prompt != "" {
			fmt.Print(effect.Prompt)
		}
		if !scanner.Scan() {
			return state.Selected
		}
		state, effect = picker.Step(state, scanner.Text())
	}
}

// saveRunSnapshot records how many titles each device failed in this run so
// the trend command can chart it later.
func saveRunSnapshot(dbPath, dateKey string, failures map[string]int, labels map[string]string) {
	db, err := storage.Open(dbPath)
	if err != nil {
		utils.Log.Warn("Could not open snapshot store: ", err)
		return
	}
	defer db.Close()

	points := make([]trend.Point, 0, len(failures))
	for deviceID, count := range failures {
		points = append(points, trend.Point{
			EntityKey: deviceID,
			Label:     labels[deviceID],
			DateKey:   dateKey,
			Failures:  count,
		})
	}
	if err := db.SaveSnapshot(context.Background(), dateKey, points); err != nil {
		utils.Log.Warn("Could not save snapshot: ", err)
		return
	}
	utils.Log.Info("Saved snapshot for ", dateKey, " (", len(points), " devices)")
}
