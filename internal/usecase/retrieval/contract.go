package retrieval

import (
	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/index"
)

// VacancySearcher is the slice of the vacancy store retrieval needs.
type VacancySearcher interface {
	Search(queries [][]float32, topK int) ([][]index.Hit, error)
	RecordAt(row int) (domain.VacancyRecord, error)
	RecordByID(id string) (domain.VacancyRecord, bool)
}

// ExclusionFilter drops vacancies for roles that must never be recommended.
type ExclusionFilter interface {
	Excluded(title, description string) bool
}
