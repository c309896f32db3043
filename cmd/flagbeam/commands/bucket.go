package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/bucketing"
)

var bucketPercentage int

var bucketCmd = &cobra.Command{
	Use:   "bucket <scope> <subject-id>",
	Short: "Show the deterministic bucket for a subject within a scope",
	Long: `Compute the bucket a subject lands in for a given scope (a flag key,
or flagKey:ruleID for rule-level rollouts). With --percentage, also report
whether the subject falls inside that rollout.

Examples:
  flagbeam bucket checkout_redesign user-1
  flagbeam bucket checkout_redesign:beta-testers user-1 --percentage 30`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, subject := args[0], args[1]
		bucket := bucketing.Bucket(scope, subject)
		fmt.Printf("bucket: %d / %d\n", bucket, bucketing.Scale)

		if cmd.Flags().Changed("percentage") {
			included, err := bucketing.Included(scope, subject, bucketPercentage)
			if err != nil {
				return err
			}
			fmt.Printf("included at %d%%: %t\n", bucketPercentage, included)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bucketCmd)
	bucketCmd.Flags().IntVar(&bucketPercentage, "percentage", 0, "Rollout percentage to test inclusion against")
}
