package domain

// VacancyRecord is one row of the vacancy metadata table. Immutable after the
// offline build; many records may share the same EnrichedJobTitle (duplicate
// postings of one role), which clustering relies on.
type VacancyRecord struct {
	Identifier           string `json:"identifier"`
	Title                string `json:"title"`
	EnrichedJobTitle     string `json:"enriched_job_title"`
	Description          string `json:"description"`
	EnrichedSkills       string `json:"enriched_skills"`
	EnrichedTasks        string `json:"enriched_tasks"`
	EnrichedIndustry     string `json:"enriched_industry"`
	EnrichedContractType string `json:"enriched_contract_type"`
	Country              string `json:"country"`
	Locality             string `json:"locality"`
}

// Validate reports the first missing required field, or "" when the record is usable.
func (r *VacancyRecord) Validate() string {
	switch {
	case r.Identifier == "":
		return "identifier"
	case r.EnrichedJobTitle == "":
		return "enriched_job_title"
	default:
		return ""
	}
}

// VacancySummary is the slice of a record shown to the scoring collaborator.
type VacancySummary struct {
	VacancyID          string `json:"vacancy_id"`
	EnrichedJobTitle   string `json:"enriched_job_title"`
	EnrichedSkills     string `json:"enriched_skills"`
	EnrichedTasks      string `json:"enriched_tasks"`
	DescriptionPreview string `json:"description_preview"`
}

// SummaryPreviewLen caps the description preview sent to the scorer.
const SummaryPreviewLen = 300

// Summary builds the scoring view of a record.
func (r *VacancyRecord) Summary() VacancySummary {
	preview := r.Description
	if len(preview) > SummaryPreviewLen {
		preview = preview[:SummaryPreviewLen]
	}
	return VacancySummary{
		VacancyID:          r.Identifier,
		EnrichedJobTitle:   r.EnrichedJobTitle,
		EnrichedSkills:     r.EnrichedSkills,
		EnrichedTasks:      r.EnrichedTasks,
		DescriptionPreview: preview,
	}
}
