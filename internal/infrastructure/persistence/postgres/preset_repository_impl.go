package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

// PostgresPresetRepository реализует repository.PresetRepository для PostgreSQL
type PostgresPresetRepository struct {
	db *sql.DB
}

func NewPostgresPresetRepository(db *sql.DB) *PostgresPresetRepository {
	return &PostgresPresetRepository{db: db}
}

func (r *PostgresPresetRepository) List(ctx context.Context) ([]entity.Preset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, scheme, host, resolution FROM kiosk_presets ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query presets: %w", err)
	}
	defer rows.Close()

	presets := make([]entity.Preset, 0)
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (r *PostgresPresetRepository) Get(ctx context.Context, name string) (entity.Preset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT name, scheme, host, resolution FROM kiosk_presets WHERE name = $1`, name)
	p, err := scanPreset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Preset{}, entity.ErrPresetNotFound
		}
		return entity.Preset{}, fmt.Errorf("failed to scan preset: %w", err)
	}
	return p, nil
}

// Upsert: ON CONFLICT сохраняет position, то есть место preset'а в списке
func (r *PostgresPresetRepository) Upsert(ctx context.Context, preset entity.Preset) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO kiosk_presets (name, scheme, host, resolution)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET scheme = EXCLUDED.scheme, host = EXCLUDED.host, resolution = EXCLUDED.resolution, updated_at = NOW()
		RETURNING (xmax = 0)
	`, preset.Name, preset.Scheme.String(), preset.Host, preset.Resolution.String()).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert preset: %w", err)
	}
	return !inserted, nil
}

func (r *PostgresPresetRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kiosk_presets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	if n == 0 {
		return entity.ErrPresetNotFound
	}
	return nil
}

func scanPreset(row rowScanner) (entity.Preset, error) {
	var p entity.Preset
	var scheme, resolution string
	if err := row.Scan(&p.Name, &scheme, &p.Host, &resolution); err != nil {
		return entity.Preset{}, err
	}
	p.Scheme = valueobject.TransportScheme(scheme)
	p.Resolution = valueobject.ResolutionClass(resolution)
	return p, nil
}
