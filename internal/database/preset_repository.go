package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/capm-lab-go/internal/capm"
)

// ErrPresetNotFound is returned when no custom preset has the given name.
var ErrPresetNotFound = errors.New("preset not found")

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PresetRecord is a custom lab preset row.
type PresetRecord struct {
	Preset    capm.Preset `json:"preset"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// PresetRepository stores instructor-defined lab presets in PostgreSQL.
type PresetRepository struct {
	pool DatabasePool
}

// NewPresetRepository creates a new preset repository.
func NewPresetRepository(pool DatabasePool) *PresetRepository {
	return &PresetRepository{
		pool: pool,
	}
}

const presetColumns = `name, title, risk_free_rate, beta, market_return, actual_return, summary, tasks, updated_at`

// EnsureSchema creates the preset table when it does not exist.
func (r *PresetRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS capm_presets (
			name VARCHAR(64) PRIMARY KEY,
			title TEXT NOT NULL,
			risk_free_rate DOUBLE PRECISION NOT NULL,
			beta DOUBLE PRECISION NOT NULL,
			market_return DOUBLE PRECISION NOT NULL,
			actual_return DOUBLE PRECISION NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			tasks TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create capm_presets table: %w", err)
	}
	return nil
}

// List returns every custom preset ordered by name.
func (r *PresetRepository) List(ctx context.Context) ([]PresetRecord, error) {
	query := `SELECT ` + presetColumns + ` FROM capm_presets ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	var records []PresetRecord
	for rows.Next() {
		record, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presets: %w", err)
	}

	return records, nil
}

// Get returns the custom preset stored under name.
func (r *PresetRepository) Get(ctx context.Context, name string) (*PresetRecord, error) {
	query := `SELECT ` + presetColumns + ` FROM capm_presets WHERE name = $1`

	record, err := scanPreset(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
		}
		return nil, fmt.Errorf("failed to get preset %q: %w", name, err)
	}
	return &record, nil
}

// Upsert inserts or replaces a custom preset. An empty title is derived from
// the name.
func (r *PresetRepository) Upsert(ctx context.Context, preset capm.Preset) (*PresetRecord, error) {
	if preset.Title == "" {
		preset.Title = TitleFor(preset.Name)
	}
	tasks := preset.Tasks
	if tasks == nil {
		tasks = []string{}
	}

	query := `
		INSERT INTO capm_presets (name, title, risk_free_rate, beta, market_return, actual_return, summary, tasks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name)
		DO UPDATE SET
			title = EXCLUDED.title,
			risk_free_rate = EXCLUDED.risk_free_rate,
			beta = EXCLUDED.beta,
			market_return = EXCLUDED.market_return,
			actual_return = EXCLUDED.actual_return,
			summary = EXCLUDED.summary,
			tasks = EXCLUDED.tasks,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + presetColumns

	record, err := scanPreset(r.pool.QueryRow(ctx, query,
		preset.Name,
		preset.Title,
		preset.Inputs.RiskFreeRate,
		preset.Inputs.Beta,
		preset.Inputs.MarketReturn,
		preset.Inputs.ActualReturn,
		preset.Summary,
		tasks,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert preset %q: %w", preset.Name, err)
	}
	return &record, nil
}

// Delete removes a custom preset.
func (r *PresetRepository) Delete(ctx context.Context, name string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM capm_presets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return nil
}

// ListPresets returns the custom presets as lab presets, satisfying the
// service's preset provider.
func (r *PresetRepository) ListPresets(ctx context.Context) ([]capm.Preset, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	presets := make([]capm.Preset, 0, len(records))
	for _, record := range records {
		presets = append(presets, record.Preset)
	}
	return presets, nil
}

// TitleFor turns a preset name such as "bond_proxy" into "Bond Proxy".
func TitleFor(name string) string {
	words := strings.FieldsFunc(name, func(c rune) bool {
		return c == '_' || c == '-' || c == ' '
	})
	// Casers are stateful, so one per call.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func scanPreset(row pgx.Row) (PresetRecord, error) {
	var record PresetRecord
	p := &record.Preset
	err := row.Scan(
		&p.Name,
		&p.Title,
		&p.Inputs.RiskFreeRate,
		&p.Inputs.Beta,
		&p.Inputs.MarketReturn,
		&p.Inputs.ActualReturn,
		&p.Summary,
		&p.Tasks,
		&record.UpdatedAt,
	)
	return record, err
}
