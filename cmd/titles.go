package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mdmtools/patchscope/internal/utils"
	"github.com/mdmtools/patchscope/pkg/jamf"
)

// titlesCmd represents the titles command
var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Export the patch-title catalog as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		client := newClient(cmd)
		catalog, err := client.ListSoftwareTitles()
		if err != nil {
			utils.Log.Fatal(err)
		}
		if err := jamf.ExportTitles(output, catalog); err != nil {
			utils.Log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(titlesCmd)
	addAuthFlags(titlesCmd)

	titlesCmd.Flags().StringP("output", "o", "all_titles_with_ids.csv", "Path for the exported catalog CSV")
}
