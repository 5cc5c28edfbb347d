package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/access"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/api"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/config"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/integrations/github"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/integrations/jira"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/notify"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/service"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), cfg)
	},
}

func buildNotifier(c *config.Configuration) notify.Notifier {
	if !c.SMTP.Enabled() {
		return notify.LogNotifier{}
	}
	mail := notify.NewSMTPNotifier(c.SMTP.Host, c.SMTP.Port, c.SMTP.User, c.SMTP.Password, c.SMTP.From, c.TeamEmails)
	return notify.Multi{notify.LogNotifier{}, mail}
}

func serve(ctx context.Context, c *config.Configuration) error {
	log := logger.L()

	// 1. Storage
	db, err := storage.NewDB(c.DB)
	if err != nil {
		return err
	}
	if err := storage.Migrate(db); err != nil {
		return err
	}
	repo := storage.NewRepository(db)

	// 2. Services
	policy, err := access.ParsePolicy(c.AccessPolicy)
	if err != nil {
		return err
	}
	opportunities := service.NewManager(repo, access.NewResolver(policy))
	feedback := service.NewFeedbackManager(repo, buildNotifier(c))

	gh, err := github.NewClient(c.GitHubAPIURL, c.IntegrationTimeout)
	if err != nil {
		return fmt.Errorf("invalid GITHUB_API_URL: %w", err)
	}
	jr := jira.NewClient(c.IntegrationTimeout)

	// 3. HTTP
	sessions := session.NewMemoryStore()
	handler := api.NewHandler(opportunities, feedback, sessions, gh, jr)
	srv := &http.Server{
		Addr:              c.Address,
		Handler:           api.SetupRouter(handler, sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", c.Address).WithField("access_policy", policy.String()).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
