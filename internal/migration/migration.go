package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	consumptiondomain "github.com/smallbiznis/woyofal/internal/consumption/domain"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"gorm.io/gorm"
)

// Run brings the schema up to date. PostgreSQL uses the versioned SQL files;
// the other dialects are created from the models.
func Run(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if db.Dialector.Name() != "postgres" {
		return AutoMigrate(db)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&meterdomain.Meter{},
		&tariffdomain.TariffTier{},
		&consumptiondomain.MonthlyConsumption{},
		&purchasedomain.Transaction{},
		&auditdomain.LogEntry{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded PostgreSQL migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
