package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

// schemaStep is one idempotent DDL statement of the catalog schema
type schemaStep struct {
	Description string
	SQL         string
}

func schemaSteps() []schemaStep {
	return []schemaStep{
		{
			Description: "create component table",
			SQL: `
				CREATE TABLE IF NOT EXISTS component (
					id SERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					category VARCHAR(255),
					atomic_type VARCHAR(64),
					comment TEXT,
					description TEXT,
					image TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP
				)
			`,
		},
		{
			Description: "create statuses table",
			SQL: `
				CREATE TABLE IF NOT EXISTS statuses (
					id SERIAL PRIMARY KEY,
					comp_id INTEGER NOT NULL REFERENCES component(id) ON DELETE CASCADE,
					guidelines VARCHAR(64),
					figma VARCHAR(64),
					storybook VARCHAR(64),
					cdn VARCHAR(64)
				)
			`,
		},
		{
			Description: "create platform_links table",
			SQL: `
				CREATE TABLE IF NOT EXISTS platform_links (
					id SERIAL PRIMARY KEY,
					comp_id INTEGER NOT NULL REFERENCES component(id) ON DELETE CASCADE,
					figma TEXT,
					storybook TEXT
				)
			`,
		},
		{
			Description: "index statuses by component",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_statuses_comp_id ON statuses(comp_id)`,
		},
		{
			Description: "index platform links by component",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_platform_links_comp_id ON platform_links(comp_id)`,
		},
	}
}

// EnsureSchema creates the catalog tables when they do not exist. It never
// alters existing tables.
func EnsureSchema(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, step := range schemaSteps() {
		logger.WithField("step", step.Description).Debug("applying schema step")
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("failed to %s: %w", step.Description, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	logger.Info("catalog schema ready")
	return nil
}
