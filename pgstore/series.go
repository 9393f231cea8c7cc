package pgstore

import (
	"context"
	"fmt"

	"github.com/etnz/bondbt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// SaveSeries writes a value series under a new run id, and returns it.
func (m *Market) SaveSeries(ctx context.Context, series bondbt.Series) (uuid.UUID, error) {
	runID := uuid.New()
	rows := make([][]any, 0, len(series))
	for _, v := range series {
		rows = append(rows, []any{runID, v.On.Time(), v.Cash.Value(), v.Asset.Value(), v.Total.Value()})
	}
	n, err := m.db.CopyFrom(
		ctx,
		pgx.Identifier{"tb_value"},
		[]string{"run_id", "dt", "cash", "asset", "total"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("postgres: save series %s: %w", runID, err)
	}
	m.log.WithFields(logrus.Fields{"run_id": runID, "rows": n}).Info("series saved")
	return runID, nil
}
