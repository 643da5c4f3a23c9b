package fhirmodels

// Common FHIR value set constants used across the application.

// Resource type names handled by the form engine.
const (
	ResourceTypeQuestionnaire         = "Questionnaire"
	ResourceTypeQuestionnaireResponse = "QuestionnaireResponse"
)

// PublicationStatus values per FHIR R4.
const (
	PublicationStatusDraft   = "draft"
	PublicationStatusActive  = "active"
	PublicationStatusRetired = "retired"
)

// QuestionnaireItemType codes per FHIR R4.
const (
	ItemTypeGroup      = "group"
	ItemTypeBoolean    = "boolean"
	ItemTypeDecimal    = "decimal"
	ItemTypeInteger    = "integer"
	ItemTypeDate       = "date"
	ItemTypeDateTime   = "dateTime"
	ItemTypeString     = "string"
	ItemTypeText       = "text"
	ItemTypeChoice     = "choice"
	ItemTypeOpenChoice = "open-choice"
	ItemTypeAttachment = "attachment"
)

// QuestionnaireResponseStatus codes per FHIR R4.
const (
	ResponseStatusCompleted = "completed"
)
