package domain

// RoleCategory is the functional family of a role need.
type RoleCategory string

const (
	CategoryClinical             RoleCategory = "clinical"
	CategoryAdministrative       RoleCategory = "administrative"
	CategoryAnalytical           RoleCategory = "analytical"
	CategoryComplianceGovernance RoleCategory = "compliance_governance"
	CategoryOperational          RoleCategory = "operational"
	CategoryTrainingChangeMgmt   RoleCategory = "training_change_mgmt"
	CategorySupervisory          RoleCategory = "supervisory"
)

// InteractionPattern describes how a role touches the system.
type InteractionPattern string

const (
	PatternPrimaryDailyUser   InteractionPattern = "primary_daily_user"
	PatternPeriodicReviewer   InteractionPattern = "periodic_reviewer"
	PatternExceptionHandler   InteractionPattern = "exception_handler"
	PatternOversightApprover  InteractionPattern = "oversight_approver"
	PatternConfigurationOwner InteractionPattern = "configuration_owner"
)

// SenioritySignal is the seniority level a role need implies.
type SenioritySignal string

const (
	SeniorityEntryLevel       SenioritySignal = "entry_level"
	SeniorityExperienced      SenioritySignal = "experienced"
	SenioritySeniorSpecialist SenioritySignal = "senior_specialist"
	SeniorityLeadership       SenioritySignal = "leadership"
)

// TransformationType relates a recommended role to the organization's legacy roles.
type TransformationType string

const (
	TransformationExistingUnchanged    TransformationType = "existing_unchanged"
	TransformationExistingAugmented    TransformationType = "existing_augmented"
	TransformationExistingConsolidated TransformationType = "existing_consolidated"
	TransformationNewlyCreated         TransformationType = "newly_created"
)

// RoleTransformation carries transformation provenance for a role need.
type RoleTransformation struct {
	TransformationType TransformationType `json:"transformation_type"`
	Rationale          string             `json:"rationale,omitempty"`
}

// RoleNeed is an abstract description of a human job function required to
// operate a software system. Produced upstream, consumed by retrieval.
type RoleNeed struct {
	ID                   string             `json:"id"`
	Description          string             `json:"description"`
	Category             RoleCategory       `json:"category"`
	InteractionPattern   InteractionPattern `json:"interaction_pattern"`
	DomainExpertise      []string           `json:"domain_expertise,omitempty"`
	SystemSkills         []string           `json:"system_skills,omitempty"`
	SenioritySignal      SenioritySignal    `json:"seniority_signal"`
	DerivedJobTitles     []string           `json:"derived_job_titles,omitempty"`
	DerivedSkillKeywords []string           `json:"derived_skill_keywords,omitempty"`
	SourceModule         string             `json:"source_module,omitempty"`
	SourceObligations    []string           `json:"source_obligations,omitempty"`
	Transformation       RoleTransformation `json:"transformation"`
}
