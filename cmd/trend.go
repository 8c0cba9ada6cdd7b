package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdmtools/patchscope/internal/utils"
	"github.com/mdmtools/patchscope/pkg/storage"
	"github.com/mdmtools/patchscope/pkg/trend"
)

// trendCmd represents the trend command
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Merge dated compliance snapshots into a failure trend table",
	Long: `Combines the most recent compliance snapshots into one table: one row per
device, one column per snapshot date, plus an average row. Snapshots come
from a directory of dated CSV exports (--input-dir) or from a sqlite
snapshot store written by 'report --save-db' (--db).`,
	Run: func(cmd *cobra.Command, args []string) {
		inputDir, _ := cmd.Flags().GetString("input-dir")
		dbPath, _ := cmd.Flags().GetString("db")
		output, _ := cmd.Flags().GetString("output")
		keep, _ := cmd.Flags().GetInt("keep")
		days, _ := rootCmd.PersistentFlags().GetInt("days")

		if (inputDir == "") == (dbPath == "") {
			utils.Log.Fatal("Provide exactly one snapshot source: --input-dir or --db")
		}

		var (
			snapshots []trend.Snapshot
			err       error
		)
		if inputDir != "" {
			snapshots, err = trend.SelectRecent(inputDir, days, keep, time.Now())
		} else {
			var db *storage.DB
			db, err = storage.Open(dbPath)
			if err == nil {
				defer db.Close()
				snapshots, err = db.ListSnapshots(context.Background(), keep)
			}
		}
		if err != nil {
			utils.Log.Fatal(err)
		}
		if len(snapshots) == 0 {
			utils.Log.Fatal("No snapshots to merge")
		}
		for _, s := range snapshots {
			utils.Log.Info("Processing snapshot for date: ", s.DateKey)
		}

		rows, dates := trend.Build(snapshots)
		if err := writeTrend(output, rows, dates); err != nil {
			utils.Log.Fatal(err)
		}
		utils.Log.Info("Trend report written: ", output)
	},
}

func init() {
	rootCmd.AddCommand(trendCmd)

	trendCmd.Flags().StringP("input-dir", "d", "", "Directory of dated compliance CSV exports")
	trendCmd.Flags().StringP("db", "", "", "Sqlite snapshot store written by 'report --save-db'")
	trendCmd.Flags().StringP("output", "o", "Trend_Analysis.csv", "Path for the trend CSV")
	trendCmd.Flags().IntP("keep", "k", 4, "How many of the most recent snapshots to merge")
}
