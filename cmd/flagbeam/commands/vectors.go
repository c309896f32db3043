package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/bucketing"
)

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Print the bucketing conformance vectors",
	Long: `Print the conformance vectors for bucketing contract version ` + fmt.Sprint(bucketing.ContractVersion) + `.
Ports of the bucketing contract in other languages must reproduce these
bucket assignments exactly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := struct {
			ContractVersion int                `json:"contractVersion"`
			Scale           int                `json:"scale"`
			Vectors         []bucketing.Vector `json:"vectors"`
		}{
			ContractVersion: bucketing.ContractVersion,
			Scale:           bucketing.Scale,
			Vectors:         bucketing.Vectors(),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(vectorsCmd)
}
