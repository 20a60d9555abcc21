package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <validator-token>",
	Short: "Approve a pending access request",
	Long: `Approves an escalation request using the validator token relayed through
the notification channel. Only members of the administrative groups can
approve; the requester's own token is not accepted here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		if token == "" {
			return fmt.Errorf("validator token cannot be empty")
		}

		cli, _, err := getClient()
		if err != nil {
			return err
		}

		if err := cli.Approve(cmd.Context(), token); err != nil {
			return logError(err, "", "failed to approve access request")
		}

		logSuccess("access request approved")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
}
