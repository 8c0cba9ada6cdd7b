package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdmtools/patchscope/internal/utils"
	"github.com/mdmtools/patchscope/pkg/baseline"
	"github.com/mdmtools/patchscope/pkg/jamf"
	"github.com/mdmtools/patchscope/pkg/report"
)

// Per-title detail tabs in ratio mode are capped to keep report size sane.
const detailTitleLimit = 50

// overallCmd represents the overall command
var overallCmd = &cobra.Command{
	Use:   "overall",
	Short: "Fleet-wide patch completion (vendor-latest, active-ratio scaled)",
	Long: `Builds the classic fleet-wide table: for every title, the vendor-reported
patched and out-of-date host counts, plus the same counts scaled by the
fraction of inventory that recently checked in.`,
	Run: func(cmd *cobra.Command, args []string) {
		outputDir, _ := cmd.Flags().GetString("output")
		org, _ := cmd.Flags().GetString("org")
		topList, _ := cmd.Flags().GetString("top-list")
		activeMode, _ := cmd.Flags().GetString("active-mode")
		withDetails, _ := cmd.Flags().GetBool("details")
		days, _ := rootCmd.PersistentFlags().GetInt("days")

		if activeMode != "ratio" && activeMode != "per_record" {
			utils.Log.Fatal("--active-mode must be 'ratio' or 'per_record'")
		}

		client := newClient(cmd)
		now := time.Now().UTC()

		catalog, err := client.ListSoftwareTitles()
		if err != nil {
			utils.Log.Fatal(err)
		}

		utils.Log.Info("Fetching inventory to compute active ratio...")
		contacts, err := client.ListInventoryLastContacts()
		if err != nil {
			utils.Log.Fatal(err)
		}
		ratio := report.CalculateActiveRatio(contacts, days, now)
		utils.Log.Infof("Inventory totals: total=%d active=%d ratio=%.4f", ratio.Total, ratio.Active, ratio.Ratio)

		// One title failing must not sink the whole batch.
		var summaries []jamf.PatchSummary
		for _, t := range catalog {
			s, err := client.GetPatchSummary(t.ID)
			if err != nil {
				utils.Log.Warn("summary failed for ", t.Name, ": ", err)
				continue
			}
			s.Title = t.Name
			summaries = append(summaries, s)
		}

		rows := report.BuildOverall(summaries, ratio.Ratio)

		if err := writeReportInfo(outputDir, org, now.Format("2006-01-02 15:04:05"), days); err != nil {
			utils.Log.Fatal(err)
		}
		if err := writeOverall(outputDir, "Overall_Summary.csv", rows); err != nil {
			utils.Log.Fatal(err)
		}

		if topList != "" {
			names, err := readLines(topList)
			if err != nil {
				utils.Log.Fatal(err)
			}
			top := report.FilterTop(rows, names)
			if err := writeOverall(outputDir, "Top_Titles.csv", top); err != nil {
				utils.Log.Fatal(err)
			}
		}

		if withDetails {
			limit := len(catalog)
			if limit > detailTitleLimit {
				limit = detailTitleLimit
			}
			for _, t := range catalog[:limit] {
				records, err := client.GetPatchReport(t.ID)
				if err != nil {
					utils.Log.Warn("detail fetch failed for ", t.Name, ": ", err)
					continue
				}
				windowDays := 0
				if activeMode == "per_record" {
					windowDays = days
				}
				// No baseline here: detail rows carry the raw versions only.
				_, details := report.BuildBaselineSummary(
					baseline.Selection{ID: t.ID, Title: t.Name}, records, windowDays, now)
				if err := writeDetailRows(outputDir, t.Name, details); err != nil {
					utils.Log.Warn("detail write failed for ", t.Name, ": ", err)
				}
			}
		}

		utils.Log.Info("Report written to: ", outputDir)
	},
}

func init() {
	rootCmd.AddCommand(overallCmd)
	addAuthFlags(overallCmd)

	overallCmd.Flags().StringP("output", "o", "patch_report", "Output directory for report CSVs")
	overallCmd.Flags().StringP("org", "", "", "Organization name for report headers")
	overallCmd.Flags().StringP("top-list", "", "", "File of patch title names/IDs to highlight")
	overallCmd.Flags().StringP("active-mode", "", "ratio", "How to compute 'active' devices: ratio or per_record")
	overallCmd.Flags().BoolP("details", "", true, "Write per-title device detail CSVs")
}

func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
