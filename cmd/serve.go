package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/antoinerrr/ssh-ecs/internal/access"
	"github.com/antoinerrr/ssh-ecs/internal/api"
	"github.com/antoinerrr/ssh-ecs/internal/audit"
	"github.com/antoinerrr/ssh-ecs/internal/awsctx"
	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
	"github.com/antoinerrr/ssh-ecs/internal/identity"
	"github.com/antoinerrr/ssh-ecs/internal/notify"
	"github.com/antoinerrr/ssh-ecs/internal/policy"
	"github.com/antoinerrr/ssh-ecs/internal/resolve"
	"github.com/antoinerrr/ssh-ecs/internal/secret"
	"github.com/antoinerrr/ssh-ecs/internal/store"
)

var serveCfgFile string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the access broker server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(serveCfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log.Info().Msg("Initializing identity provider...")
		idp, err := identity.NewGitHub(cfg.GitHub)
		if err != nil {
			return fmt.Errorf("building identity provider: %w", err)
		}

		authz := policy.New(cfg, cfg.AdminGroups, idp)

		log.Info().Msg("Initializing execution context factory...")
		factory, err := awsctx.NewFactory(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("building execution context factory: %w", err)
		}

		log.Info().Msg("Initializing secret issuer...")
		issuer, err := secret.NewVaultIssuer(cfg.Vault)
		if err != nil {
			return fmt.Errorf("building secret issuer: %w", err)
		}

		auditor, err := audit.FromConfig(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building audit sink: %w", err)
		}

		requests, err := store.FromConfig(cfg.Store)
		if err != nil {
			return fmt.Errorf("building request store: %w", err)
		}

		var notifier core.Notifier
		if cfg.Slack.WebhookURL != "" {
			notifier = notify.NewSlackNotifier(cfg.Slack)
		} else {
			log.Warn().Msg("no Slack webhook configured, validator tokens go to the server log")
			notifier = notify.NewNoopNotifier()
		}

		pipeline := resolve.New(issuer, auditor)
		accessSvc := access.NewService(authz, factory, pipeline, requests, notifier, auditor, cfg.Access.TTL)

		srv := api.NewServer(cfg, idp, authz, factory, accessSvc, auditor)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		if err := requests.Close(); err != nil {
			log.Warn().Err(err).Msg("closing request store")
		}
		if err := auditor.Close(); err != nil {
			log.Warn().Err(err).Msg("closing audit sink")
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().StringVarP(&serveCfgFile, "config", "c", "sshecs.yaml", "server configuration file")
}
