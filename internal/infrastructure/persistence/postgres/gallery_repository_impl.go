package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	_ "github.com/lib/pq"
)

// PostgresGalleryRepository реализует repository.GalleryRepository для PostgreSQL
type PostgresGalleryRepository struct {
	db *sql.DB
}

// NewPostgresGalleryRepository создает новый PostgreSQL repository
func NewPostgresGalleryRepository(db *sql.DB) *PostgresGalleryRepository {
	return &PostgresGalleryRepository{db: db}
}

// Append вставляет снимок и удаляет старые сверх maxItems одной транзакцией
func (r *PostgresGalleryRepository) Append(ctx context.Context, shot *entity.Screenshot, maxItems int) ([]*entity.Screenshot, error) {
	model, err := ToDBModel(shot)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to DB model: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kiosk_screenshots (`+screenshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		model.ID,
		model.DataURL,
		model.CapturedAt,
		model.Host,
		model.Scheme,
		model.Resolution,
		model.Zoom,
		model.Technique,
		model.Notes,
		model.Width,
		model.Height,
		model.ObjectKey,
		model.ObjectURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert screenshot: %w", err)
	}

	var evicted []*entity.Screenshot
	if maxItems > 0 {
		// evicted: самые старые первыми
		rows, err := tx.QueryContext(ctx, `
			WITH gone AS (
				DELETE FROM kiosk_screenshots
				WHERE position IN (
					SELECT position FROM kiosk_screenshots ORDER BY position DESC OFFSET $1
				)
				RETURNING *
			)
			SELECT `+screenshotColumns+` FROM gone ORDER BY position ASC`,
			maxItems,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to evict screenshots: %w", err)
		}
		evicted, err = scanScreenshots(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evicted screenshots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return evicted, nil
}

// List возвращает снимки, новые первыми
func (r *PostgresGalleryRepository) List(ctx context.Context) ([]*entity.Screenshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+screenshotColumns+` FROM kiosk_screenshots ORDER BY position DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query screenshots: %w", err)
	}
	return scanScreenshots(rows)
}

func (r *PostgresGalleryRepository) Get(ctx context.Context, id string) (*entity.Screenshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+screenshotColumns+` FROM kiosk_screenshots WHERE id = $1`, id)
	model, err := ScanScreenshotRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrScreenshotNotFound
		}
		return nil, fmt.Errorf("failed to scan screenshot: %w", err)
	}
	return ToEntity(model), nil
}

func (r *PostgresGalleryRepository) Delete(ctx context.Context, id string) (*entity.Screenshot, error) {
	row := r.db.QueryRowContext(ctx, `DELETE FROM kiosk_screenshots WHERE id = $1 RETURNING `+screenshotColumns, id)
	model, err := ScanScreenshotRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrScreenshotNotFound
		}
		return nil, fmt.Errorf("failed to delete screenshot: %w", err)
	}
	return ToEntity(model), nil
}

func (r *PostgresGalleryRepository) Clear(ctx context.Context) ([]*entity.Screenshot, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM kiosk_screenshots RETURNING `+screenshotColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to clear screenshots: %w", err)
	}
	return scanScreenshots(rows)
}

func (r *PostgresGalleryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kiosk_screenshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count screenshots: %w", err)
	}
	return n, nil
}
