package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/antoinerrr/ssh-ecs/pkg/client"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Retrieve and display audit events",
	Long:  "Fetches recent access decisions from the server. Requires membership in an administrative group.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		login, _ := cmd.Flags().GetString("login")
		action, _ := cmd.Flags().GetString("action")

		cli, _, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching audit events...")
		events, err := cli.AuditEvents(cmd.Context(), client.AuditQuery{
			Limit:  limit,
			Login:  login,
			Action: action,
		})
		if err != nil {
			return logError(err, "", "failed to fetch audit events")
		}

		log.Info().Msgf("Retrieved %d audit events", len(events))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Action", "Principal", "Granted", "Product", "Cluster", "Error",
		})

		for _, e := range events {
			status := "YES"
			if !e.Granted {
				status = "NO"
			}

			sub := "(unknown)"
			if e.Principal != nil {
				sub = truncate(e.Principal.Login, 35)
			}

			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.Action,
				sub,
				status,
				e.Product,
				e.Cluster,
				e.Error,
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().IntP("limit", "n", 25, "Number of audit events to retrieve")
	auditCmd.Flags().String("login", "", "Only show events for this principal")
	auditCmd.Flags().String("action", "", "Only show events with this action (e.g. connect.direct)")
}
