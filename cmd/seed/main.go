// Command seed is the admin CLI for the chatflow service: it applies the
// database schema and loads demo data for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"chatflow-backend/internal/config"
	"chatflow-backend/internal/logging"
	"chatflow-backend/internal/repository"
	"chatflow-backend/pkg/models"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Admin CLI for the chatflow service",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	rootCmd.AddCommand(migrateCmd(), seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, repository.Schema); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
			log.Println("schema applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo workspace, member and chatflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.NewLogger()

			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := repository.NewPostgresStore(pool)

			// 1. Ensure the dev profile exists
			profile, err := store.GetProfileByEmail(ctx, "dev@localhost")
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				logger.Info("Creating dev profile")
				profile = &models.Profile{Email: types.Email("dev@localhost"), Name: "Dev User"}
				if err := store.CreateProfile(ctx, profile); err != nil {
					return fmt.Errorf("creating profile: %w", err)
				}
			}

			// 2. Ensure the demo workspace exists with the dev profile as a member
			workspace, err := store.GetWorkspaceBySlug(ctx, "acme")
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				logger.Info("Creating demo workspace", "slug", "acme")
				workspace = &models.Workspace{Slug: "acme", Name: "Acme Inc"}
				if err := store.CreateWorkspace(ctx, workspace); err != nil {
					return fmt.Errorf("creating workspace: %w", err)
				}
				member := &models.WorkspaceMember{
					ProfileID:   profile.ID,
					WorkspaceID: workspace.ID,
					Role:        "owner",
				}
				if err := store.AddWorkspaceMember(ctx, member); err != nil {
					return fmt.Errorf("adding member: %w", err)
				}
			}

			// 3. Check for existing chatflows to prevent duplicates
			existing, err := store.ListChatflows(ctx, []string{workspace.ID})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				logger.Info("Demo chatflows already present", "count", len(existing))
				return nil
			}

			logger.Info("Creating demo chatflows")

			published := &models.Chatflow{
				WorkspaceID: workspace.ID,
				Name:        "Customer Feedback",
				Description: "Collect product feedback from customers",
				Schema: models.FormSchema{Fields: []models.FormField{
					{Type: "text", Label: "Name"},
					{Type: "email", Label: "Email"},
					{Type: "textarea", Label: "What could we improve?"},
				}}.AsMap(),
				Status:   models.ChatflowStatusPublished,
				ShareURL: "fdbkdemo",
			}
			if err := store.CreateChatflow(ctx, published); err != nil {
				return fmt.Errorf("creating published chatflow: %w", err)
			}

			draft := &models.Chatflow{
				WorkspaceID: workspace.ID,
				Name:        "Untitled chatflow",
				Description: "A signup form for the upcoming beta program",
				Schema:      map[string]interface{}{},
				Status:      models.ChatflowStatusDraft,
				ShareURL:    "betademo",
			}
			if err := store.CreateChatflow(ctx, draft); err != nil {
				return fmt.Errorf("creating draft chatflow: %w", err)
			}

			for i := 0; i < 3; i++ {
				submission := &models.Submission{
					ChatflowID: published.ID,
					Data: map[string]interface{}{
						"Name":  fmt.Sprintf("Demo User %d", i+1),
						"Email": fmt.Sprintf("demo%d@example.com", i+1),
					},
				}
				if err := store.CreateSubmission(ctx, submission); err != nil {
					return fmt.Errorf("creating submission: %w", err)
				}
			}

			logger.Info("Seed complete", "workspace", workspace.Slug)
			return nil
		},
	}
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
