package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

var tracer = otel.Tracer("github.com/AdrianMsc/msc-component-status-ws/pkg/storage/postgres")

const backend = "postgres"

const listRowsQuery = `
	SELECT
		c.id AS component_id,
		c.name AS component_name,
		c.category AS component_category,
		c.atomic_type AS component_atomic_type,
		c.comment AS component_comment,
		c.description AS component_description,
		c.image AS component_image,
		c.created_at,
		c.updated_at,
		pl.figma AS figma_link,
		pl.storybook AS storybook_link,
		s.guidelines,
		s.figma,
		s.storybook,
		s.cdn
	FROM component c
	LEFT JOIN statuses s ON c.id = s.comp_id
	LEFT JOIN platform_links pl ON c.id = pl.comp_id
	ORDER BY c.id
`

// Repository implements catalog.Repository on PostgreSQL. Writes go to the
// primary; reads go to a replica when one is configured.
type Repository struct {
	conns   *ConnectionManager
	metrics *observability.Metrics
	logger  *observability.Logger
}

var _ catalog.Repository = (*Repository)(nil)

// NewRepository creates a repository. metrics may be nil.
func NewRepository(conns *ConnectionManager, metrics *observability.Metrics, logger *observability.Logger) *Repository {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Repository{
		conns:   conns,
		metrics: metrics,
		logger:  logger.WithField("component", "postgres"),
	}
}

// observe starts a span for operation and returns a func that finishes it
// and records the storage metric
func (r *Repository) observe(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	attrs = append(attrs,
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
	)
	ctx, span := tracer.Start(ctx, "Postgres."+operation, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.metrics.RecordStorageOperation(operation, backend, start, err)
	}
}

// ListComponentNames returns all component names ordered by name
func (r *Repository) ListComponentNames(ctx context.Context) (names []catalog.ComponentName, err error) {
	ctx, done := r.observe(ctx, "ListComponentNames")
	defer func() { done(err) }()

	rows, err := r.conns.Replica().QueryContext(ctx, "SELECT c.name FROM component c ORDER BY c.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list component names: %w", err)
	}
	defer rows.Close()

	names = make([]catalog.ComponentName, 0)
	for rows.Next() {
		var n catalog.ComponentName
		if err := rows.Scan(&n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan component name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate component names: %w", err)
	}

	return names, nil
}

// CountComponents returns the number of components
func (r *Repository) CountComponents(ctx context.Context) (count int64, err error) {
	ctx, done := r.observe(ctx, "CountComponents")
	defer func() { done(err) }()

	if err := r.conns.Replica().QueryRowContext(ctx, "SELECT COUNT(*) FROM component").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count components: %w", err)
	}
	return count, nil
}

// ListComponentRows runs the joined listing query
func (r *Repository) ListComponentRows(ctx context.Context) (result []catalog.Row, err error) {
	ctx, done := r.observe(ctx, "ListComponentRows")
	defer func() { done(err) }()

	rows, err := r.conns.Replica().QueryContext(ctx, listRowsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	result = make([]catalog.Row, 0)
	for rows.Next() {
		var row catalog.Row
		err := rows.Scan(
			&row.ComponentID,
			&row.ComponentName,
			&row.ComponentCategory,
			&row.ComponentAtomicType,
			&row.ComponentComment,
			&row.ComponentDescription,
			&row.ComponentImage,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.FigmaLink,
			&row.StorybookLink,
			&row.Guidelines,
			&row.Figma,
			&row.Storybook,
			&row.CDN,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate component rows: %w", err)
	}

	return result, nil
}

// GetComponent loads a component from the primary so that a read after a
// write sees the write
func (r *Repository) GetComponent(ctx context.Context, id int64) (_ *catalog.Component, err error) {
	ctx, done := r.observe(ctx, "GetComponent", attribute.Int64("component.id", id))
	defer func() { done(err) }()

	query := `
		SELECT id, name, category, atomic_type, comment, description, image, created_at, updated_at
		FROM component
		WHERE id = $1
	`

	var c catalog.Component
	err = r.conns.Primary().QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Category,
		&c.AtomicType,
		&c.Comment,
		&c.Description,
		&c.Image,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get component: %w", err)
	}

	return &c, nil
}

// CreateComponent inserts the component, its statuses and its platform
// links in one transaction
func (r *Repository) CreateComponent(ctx context.Context, in *catalog.ComponentInput, imageURL *string) (id int64, err error) {
	ctx, done := r.observe(ctx, "CreateComponent", attribute.String("component.category", in.Category))
	defer func() { done(err) }()

	tx, err := r.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO component (name, category, comment, description, image, atomic_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, in.Name, in.Category, in.Comment, in.Description, imageURL, in.AtomicType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert component: %w", err)
	}

	if err := insertStatuses(ctx, tx, id, in); err != nil {
		return 0, err
	}
	if err := insertPlatformLinks(ctx, tx, id, in); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// UpdateComponent replaces the component's fields and upserts its status
// and link rows. The image column is only written when imageURL is set.
func (r *Repository) UpdateComponent(ctx context.Context, id int64, in *catalog.ComponentInput, imageURL *string) (err error) {
	ctx, done := r.observe(ctx, "UpdateComponent", attribute.Int64("component.id", id))
	defer func() { done(err) }()

	tx, err := r.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var query string
	var args []interface{}
	if imageURL != nil {
		query = `
			UPDATE component
			SET name = $1, category = $2, comment = $3, description = $4, atomic_type = $5, image = $6, updated_at = NOW()
			WHERE id = $7
			RETURNING id
		`
		args = []interface{}{in.Name, in.Category, in.Comment, in.Description, in.AtomicType, *imageURL, id}
	} else {
		query = `
			UPDATE component
			SET name = $1, category = $2, comment = $3, description = $4, atomic_type = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING id
		`
		args = []interface{}{in.Name, in.Category, in.Comment, in.Description, in.AtomicType, id}
	}

	var updated int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("failed to update component: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE statuses SET figma = $1, guidelines = $2, cdn = $3, storybook = $4
		WHERE comp_id = $5
	`, in.Figma, in.Guidelines, in.CDN, in.Storybook, id)
	if err != nil {
		return fmt.Errorf("failed to update statuses: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := insertStatuses(ctx, tx, id, in); err != nil {
			return err
		}
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE platform_links SET figma = $1, storybook = $2
		WHERE comp_id = $3
	`, in.FigmaLink, in.StorybookLink, id)
	if err != nil {
		return fmt.Errorf("failed to update platform links: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := insertPlatformLinks(ctx, tx, id, in); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateResources applies a partial update. NULL parameters keep the
// stored column value.
func (r *Repository) UpdateResources(ctx context.Context, id int64, patch *catalog.ResourcePatch) (result catalog.ResourceUpdate, err error) {
	ctx, done := r.observe(ctx, "UpdateResources", attribute.Int64("component.id", id))
	defer func() { done(err) }()

	tx, err := r.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM component WHERE id = $1)", id).Scan(&exists); err != nil {
		return result, fmt.Errorf("failed to check component: %w", err)
	}
	if !exists {
		return result, catalog.ErrNotFound
	}

	if patch.HasStatusFields() {
		_, err := tx.ExecContext(ctx, `
			UPDATE statuses
			SET
				figma = COALESCE($1, figma),
				guidelines = COALESCE($2, guidelines),
				cdn = COALESCE($3, cdn),
				storybook = COALESCE($4, storybook)
			WHERE comp_id = $5
		`, patch.Figma, patch.Guidelines, patch.CDN, patch.Storybook, id)
		if err != nil {
			return result, fmt.Errorf("failed to update status fields: %w", err)
		}
		result.Statuses = true
	}

	if patch.HasLinkFields() {
		_, err := tx.ExecContext(ctx, `
			UPDATE platform_links
			SET
				figma = COALESCE($1, figma),
				storybook = COALESCE($2, storybook)
			WHERE comp_id = $3
		`, patch.FigmaLink, patch.StorybookLink, id)
		if err != nil {
			return result, fmt.Errorf("failed to update platform link fields: %w", err)
		}
		result.Links = true
	}

	if _, err := tx.ExecContext(ctx, "UPDATE component SET updated_at = NOW() WHERE id = $1", id); err != nil {
		return result, fmt.Errorf("failed to touch component: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// DeleteComponent removes the component with its statuses and links
func (r *Repository) DeleteComponent(ctx context.Context, id int64) (err error) {
	ctx, done := r.observe(ctx, "DeleteComponent", attribute.Int64("component.id", id))
	defer func() { done(err) }()

	tx, err := r.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM statuses WHERE comp_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete statuses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM platform_links WHERE comp_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete platform links: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM component WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete component: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// HealthCheck pings the primary and replicas
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.conns.HealthCheck(ctx)
}

func insertStatuses(ctx context.Context, tx *sql.Tx, id int64, in *catalog.ComponentInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO statuses (comp_id, figma, guidelines, cdn, storybook)
		VALUES ($1, $2, $3, $4, $5)
	`, id, in.Figma, in.Guidelines, in.CDN, in.Storybook)
	if err != nil {
		return fmt.Errorf("failed to insert statuses: %w", err)
	}
	return nil
}

func insertPlatformLinks(ctx context.Context, tx *sql.Tx, id int64, in *catalog.ComponentInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO platform_links (comp_id, figma, storybook)
		VALUES ($1, $2, $3)
	`, id, in.FigmaLink, in.StorybookLink)
	if err != nil {
		return fmt.Errorf("failed to insert platform links: %w", err)
	}
	return nil
}
