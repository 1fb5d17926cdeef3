package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/capm-lab-go/internal/capm"
)

var presetRowColumns = []string{
	"name", "title", "risk_free_rate", "beta", "market_return", "actual_return", "summary", "tasks", "updated_at",
}

func newMockRepository(t *testing.T) (*PresetRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPresetRepository(mock), mock
}

func TestPresetRepository_EnsureSchema(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS capm_presets").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresetRepository_List(t *testing.T) {
	repo, mock := newMockRepository(t)
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := mock.NewRows(presetRowColumns).
		AddRow("bond_proxy", "Bond Proxy", 0.04, 0.3, 0.09, 0.05, "Low beta utility", []string{"Find alpha"}, updated).
		AddRow("momentum", "Momentum", 0.03, 1.8, 0.10, 0.20, "", []string{}, updated)
	mock.ExpectQuery(regexp.QuoteMeta("FROM capm_presets ORDER BY name")).WillReturnRows(rows)

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "bond_proxy", records[0].Preset.Name)
	assert.Equal(t, capm.Inputs{RiskFreeRate: 0.04, Beta: 0.3, MarketReturn: 0.09, ActualReturn: 0.05}, records[0].Preset.Inputs)
	assert.Equal(t, []string{"Find alpha"}, records[0].Preset.Tasks)
	assert.False(t, records[0].Preset.BuiltIn)
	assert.Equal(t, updated, records[1].UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresetRepository_List_QueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM capm_presets").WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list presets")
}

func TestPresetRepository_ListPresets(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := mock.NewRows(presetRowColumns).
		AddRow("bond_proxy", "Bond Proxy", 0.04, 0.3, 0.09, 0.05, "", []string{}, time.Now())
	mock.ExpectQuery("FROM capm_presets").WillReturnRows(rows)

	presets, err := repo.ListPresets(context.Background())
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, "Bond Proxy", presets[0].Title)
}

func TestPresetRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		rows := mock.NewRows(presetRowColumns).
			AddRow("bond_proxy", "Bond Proxy", 0.04, 0.3, 0.09, 0.05, "", []string{}, time.Now())
		mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).WithArgs("bond_proxy").WillReturnRows(rows)

		record, err := repo.Get(context.Background(), "bond_proxy")
		require.NoError(t, err)
		assert.Equal(t, 0.3, record.Preset.Inputs.Beta)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrPresetNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).WithArgs("x").WillReturnError(errors.New("boom"))

		_, err := repo.Get(context.Background(), "x")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPresetNotFound)
	})
}

func TestPresetRepository_Upsert(t *testing.T) {
	repo, mock := newMockRepository(t)
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	preset := capm.Preset{
		Name:   "bond_proxy",
		Inputs: capm.Inputs{RiskFreeRate: 0.04, Beta: 0.3, MarketReturn: 0.09, ActualReturn: 0.05},
	}

	rows := mock.NewRows(presetRowColumns).
		AddRow("bond_proxy", "Bond Proxy", 0.04, 0.3, 0.09, 0.05, "", []string{}, updated)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO capm_presets")).
		WithArgs("bond_proxy", "Bond Proxy", 0.04, 0.3, 0.09, 0.05, "", pgxmock.AnyArg()).
		WillReturnRows(rows)

	record, err := repo.Upsert(context.Background(), preset)
	require.NoError(t, err)
	assert.Equal(t, "Bond Proxy", record.Preset.Title)
	assert.Equal(t, updated, record.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresetRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM capm_presets")).WithArgs("bond_proxy").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(context.Background(), "bond_proxy"))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM capm_presets")).WithArgs("missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), ErrPresetNotFound)
	})
}

func TestTitleFor(t *testing.T) {
	tests := map[string]string{
		"bond_proxy":     "Bond Proxy",
		"high-beta tech": "High Beta Tech",
		"lab4":           "Lab4",
		"":               "",
	}
	for name, want := range tests {
		assert.Equal(t, want, TitleFor(name), name)
	}
}
