package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/antoinerrr/ssh-ecs/internal/cliconfig"
	"github.com/antoinerrr/ssh-ecs/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login <github-token>",
	Short: "Authenticate with an access broker server",
	Long: `Validates a GitHub personal access token against the server and saves it
locally so future commands are authenticated automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		server, err := getServerAddr()
		if err != nil {
			return err
		}
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("parsing server URL: %w", err)
		}

		// the menu route doubles as the authentication probe
		cli := client.New(server, client.WithAuthToken(token))

		log.Info().Msgf("Verifying credentials against %q...", u.Host)
		menu, err := cli.Menu(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to authenticate against server")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = cliconfig.Defaults()
		}
		if err := cfg.SetCredential(server, token); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "login succeeded but could not save credentials")
		}

		logSuccess("authenticated as %s, saved credentials for %s", bold(menu.User), bold(u.Host))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
