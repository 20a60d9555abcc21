package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/antoinerrr/ssh-ecs/internal/cliconfig"
	"github.com/antoinerrr/ssh-ecs/pkg/client"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

// BeQuietError signals that the error was already reported to the user and
// the root command should exit non-zero without logging it again.
type BeQuietError struct{}

func (BeQuietError) Error() string { return "" }

func isBeQuiet(err error, dest *BeQuietError) bool {
	return errors.As(err, dest)
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf("%s "+format, append([]any{greenCheck}, args...)...)
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func getServerAddr() (string, error) {
	server := viper.GetString(ServerAddrKey)
	if server == "" {
		return "", fmt.Errorf("server address not configured, provide via --server or SSHECS_SERVER")
	}
	return server, nil
}

func getClient() (*client.Client, *cliconfig.CLIConfig, error) {
	server, err := getServerAddr()
	if err != nil {
		return nil, nil, err
	}

	// a missing config file is fine, anything else is not
	cfg, err := cliconfig.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
		cfg = cliconfig.Defaults()
	}

	var token string
	credential, err := cfg.GetCredential(server)
	if err != nil {
		if !errors.Is(err, cliconfig.ErrCredentialNotFound) {
			return nil, nil, err
		}
	} else {
		token = credential.Token
	}

	return client.New(server, client.WithAuthToken(token)), cfg, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
