package fhir

import "fmt"

// OperationOutcome severity levels per FHIR R4.
const (
	IssueSeverityFatal = "fatal"
	IssueSeverityError = "error"
)

// OperationOutcome issue type codes used by the transcoding endpoints.
const (
	IssueTypeInvalid    = "invalid"
	IssueTypeStructure  = "structure"
	IssueTypeRequired   = "required"
	IssueTypeProcessing = "processing"
	IssueTypeTooCostly  = "too-costly"
	IssueTypeException  = "exception"
	IssueTypeDuplicate  = "duplicate"
)

// StructureOutcome reports a body that could not be parsed as JSON.
func StructureOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeStructure, diagnostics)
}

// ValidationOutcome creates an OperationOutcome for validation errors.
func ValidationOutcome(field, message string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    IssueSeverityError,
				Code:        IssueTypeInvalid,
				Diagnostics: fmt.Sprintf("%s: %s", field, message),
				Expression:  []string{field},
			},
		},
	}
}

// InvalidResourceOutcome reports a resource whose resourceType does not match
// what the endpoint accepts.
func InvalidResourceOutcome(expected, got string) *OperationOutcome {
	return NewOperationOutcome(
		IssueSeverityError,
		IssueTypeInvalid,
		fmt.Sprintf("expected resourceType %s, got %q", expected, got),
	)
}

// InternalErrorOutcome creates an OperationOutcome for internal server errors.
func InternalErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, diagnostics)
}

// MultipleIssuesOutcome creates an OperationOutcome with multiple issues from validation.
func MultipleIssuesOutcome(issues []OperationOutcomeIssue) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        issues,
	}
}
