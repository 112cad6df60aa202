package infra

import (
	"fmt"

	"belezapos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// for the ledger tables, then applies the idempotent SQL patches that GORM
// cannot express, most importantly the partial unique index that enforces
// the single-open-session invariant at the store, not in client memory.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Surfaces duplicate-key violations as gorm.ErrDuplicatedKey so the
		// repository can translate them into domain errors.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates/updates the schema. Also used by integration tests
// against throwaway containers.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.SessaoCaixa{},
		&model.MovimentoCaixa{},
		&model.Despesa{},
		&model.FechamentoCaixa{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle.
// Each statement uses IF NOT EXISTS semantics so re-running on an
// already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// At most one row may have status='aberta'. Concurrent abrir calls
		// race on this index: exactly one insert wins.
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_sessoes_caixa_aberta
		    ON sessoes_caixa (status)
		    WHERE status = 'aberta'`,
		// Flush replay and the movimentos listing both scan by session in
		// creation order.
		`CREATE INDEX IF NOT EXISTS idx_movimentos_caixa_sessao_created
		    ON movimentos_caixa (sessao_id, created_at)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
