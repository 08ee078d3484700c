package api

import (
	"fmt"
	"log/slog"
	"time"

	importhandler "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/service"
	portfoliohandler "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/handler"
	portfoliorepo "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/repository"
	portfolioservice "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/service"

	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/config"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	PortfolioRepo portfoliorepo.PortfolioRepository
	ImportRepo    importrepo.ImportRepository

	// Services
	PortfolioService *portfolioservice.PortfolioService
	ImportService    *importservice.ImportService

	// Handlers
	PortfolioHandler *portfoliohandler.PortfolioHandler
	ImportHandler    *importhandler.ImportHandler
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

	deps.initRepositories()
	deps.initServices()
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
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.PortfolioRepo = portfoliorepo.NewPostgresPortfolioRepository(d.DB.Pool, d.Logger)
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool, d.Logger)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() {
	d.PortfolioService = portfolioservice.NewPortfolioService(d.PortfolioRepo, d.Logger)
	d.ImportService = importservice.NewImportService(d.ImportRepo, d.Logger, importservice.Config{
		MaxFileBytes:     d.Config.Import.MaxFileBytes,
		MaxRows:          d.Config.Import.MaxRows,
		RescaleFractions: d.Config.Import.RescaleFractions,
	})

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initHandlers() {
	d.PortfolioHandler = portfoliohandler.NewPortfolioHandler(d.PortfolioService)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
