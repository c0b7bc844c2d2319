package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roamplan/roamplan-api/internal/domain/discover"
	"github.com/roamplan/roamplan-api/internal/domain/trip"
	"github.com/roamplan/roamplan-api/internal/llm"
	"github.com/roamplan/roamplan-api/internal/places"
	"github.com/roamplan/roamplan-api/internal/websearch"
	"github.com/roamplan/roamplan-api/pkg/config"
	"github.com/roamplan/roamplan-api/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	TripRepo trip.Repository

	// Clients
	PlacesClient    places.Client
	WebSearchClient websearch.Client
	ChatClient      llm.ChatClient

	// Services
	TripService     trip.Service
	DiscoverService discover.Service
	ShareTokens     *trip.ShareTokenManager

	// Handlers
	TripHandler     *trip.Handler
	DiscoverHandler *discover.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initClients(); err != nil {
		return nil, fmt.Errorf("failed to init provider clients: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initClients initializes the external provider clients. The places client is
// required; web search and the LLM ranker are optional and degrade to the
// deterministic path when unset.
func (d *Dependencies) initClients() error {
	d.PlacesClient = places.NewHTTPClient(
		d.Config.Providers.PlacesAPIKey,
		d.Config.Providers.PlacesBaseURL,
		d.Logger,
	)

	if d.Config.Providers.WebSearchAPIKey != "" {
		d.WebSearchClient = websearch.NewHTTPClient(
			d.Config.Providers.WebSearchAPIKey,
			d.Config.Providers.WebSearchBaseURL,
			d.Logger,
		)
	} else {
		d.Logger.Info("web search key not configured, enrichment pass disabled")
	}

	if d.Config.LLM.GeminiAPIKey != "" {
		chatClient, err := llm.NewGeminiChatClient(context.Background(), d.Config.LLM.GeminiAPIKey, d.Config.LLM.Model)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		d.ChatClient = chatClient
	} else {
		d.Logger.Info("gemini key not configured, ranking is deterministic")
	}

	d.Logger.Info("provider clients initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	shareSecret := []byte(d.Config.Auth.ShareTokenSecret)
	if len(shareSecret) == 0 {
		return fmt.Errorf("share token secret is required")
	}

	d.TripRepo = trip.NewPostgresRepository(d.DB.Pool, d.Logger)
	d.TripService = trip.NewServiceImpl(d.TripRepo, d.Logger)
	d.ShareTokens = trip.NewShareTokenManager(shareSecret, 7*24*time.Hour)
	d.DiscoverService = discover.NewServiceImpl(
		d.PlacesClient,
		d.WebSearchClient,
		d.ChatClient,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.TripHandler = trip.NewHandler(d.TripService, d.ShareTokens, d.Logger)
	d.DiscoverHandler = discover.NewHandler(d.DiscoverService, d.TripService, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
