package rerank

import (
	"context"

	"github.com/kailas-cloud/roledex/internal/domain"
)

// Scorer is the scoring collaborator: three 0-5 subscores per vacancy in a
// batch. The result is position-aligned with the batch and may be shorter
// when the provider under-returns.
type Scorer interface {
	ScoreBatch(ctx context.Context, need domain.RoleNeed, batch []domain.VacancySummary) ([]domain.AxisScores, error)
}

// RecordResolver resolves vacancy identifiers to their stored metadata.
type RecordResolver interface {
	RecordByID(id string) (domain.VacancyRecord, bool)
}
