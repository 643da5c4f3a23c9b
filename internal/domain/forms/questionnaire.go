package forms

import (
	"github.com/formfhir/formfhir/internal/platform/fhir"
	"github.com/formfhir/formfhir/pkg/fhirmodels"
)

// ToQuestionnaire converts a form definition into a FHIR Questionnaire.
func ToQuestionnaire(form *Form) *fhir.Questionnaire {
	if form == nil {
		return nil
	}
	q := &fhir.Questionnaire{
		ResourceType: fhirmodels.ResourceTypeQuestionnaire,
		ID:           form.ID,
		Title:        form.Name,
		Status:       publicationStatus(form.Status),
		Description:  form.Description,
		Extension:    formExtensions(form),
	}
	if form.OrgID != "" {
		q.Identifier = []fhir.Identifier{{System: OrganisationIdentifierSystem, Value: form.OrgID}}
	}
	if form.Category != "" {
		q.Code = []fhir.Coding{{System: CategoryCodeSystem, Code: form.Category}}
	}
	if form.UpdatedAt != nil {
		q.Meta = &fhir.Meta{LastUpdated: formatDateTime(*form.UpdatedAt)}
	}
	for _, field := range form.Schema {
		q.Item = append(q.Item, toItem(field))
	}
	return q
}

// FromQuestionnaire converts a Questionnaire back into a form definition. It
// returns a *ResourceTypeError when q is not a Questionnaire.
func FromQuestionnaire(q *fhir.Questionnaire) (*Form, error) {
	if q == nil {
		return nil, &ResourceTypeError{Expected: fhirmodels.ResourceTypeQuestionnaire}
	}
	if q.ResourceType != fhirmodels.ResourceTypeQuestionnaire {
		return nil, &ResourceTypeError{Expected: fhirmodels.ResourceTypeQuestionnaire, Got: q.ResourceType}
	}

	form := &Form{
		ID:          q.ID,
		OrgID:       organisationID(q.Identifier),
		Name:        q.Title,
		Category:    category(q.Code),
		Description: q.Description,
		Status:      formStatus(q.Status),
		Schema:      make([]FormField, 0, len(q.Item)),
	}
	applyFormExtensions(form, q.Extension)
	if form.UpdatedAt == nil && q.Meta != nil {
		if updated, ok := parseDateTime(q.Meta.LastUpdated); ok {
			form.UpdatedAt = &updated
		}
	}
	for _, item := range q.Item {
		form.Schema = append(form.Schema, fromItem(item))
	}
	return form, nil
}

func toItem(field FormField) fhir.QuestionnaireItem {
	item := fhir.QuestionnaireItem{
		Extension: fieldExtensions(field),
		LinkID:    field.ID,
		Text:      field.Label,
		Type:      ItemType(field),
		Required:  field.Required,
	}
	if field.IsChoice() {
		item.Repeats = field.RepeatsAnswers()
		for _, opt := range field.Options {
			item.AnswerOption = append(item.AnswerOption, fhir.QuestionnaireItemAnswerOption{
				ValueCoding: &fhir.Coding{System: OptionCodeSystem, Code: opt.Value, Display: opt.Label},
			})
		}
	}
	if field.Kind == KindGroup {
		for _, child := range field.Fields {
			item.Item = append(item.Item, toItem(child))
		}
	}
	return item
}

func fromItem(item fhir.QuestionnaireItem) FormField {
	field := FormField{
		ID:       item.LinkID,
		Kind:     KindFromItem(item),
		Label:    item.Text,
		Required: item.Required,
	}
	applyFieldExtensions(&field, item.Extension)
	if field.IsChoice() {
		field.Options = optionsFromItem(item.AnswerOption)
		if field.Kind != KindCheckbox {
			field.Multiple = item.Repeats
		}
	}
	if field.Kind == KindGroup {
		for _, child := range item.Item {
			field.Fields = append(field.Fields, fromItem(child))
		}
	}
	return field
}

func optionsFromItem(answerOptions []fhir.QuestionnaireItemAnswerOption) []FieldOption {
	var options []FieldOption
	for _, ao := range answerOptions {
		switch {
		case ao.ValueCoding != nil:
			label := ao.ValueCoding.Display
			if label == "" {
				label = ao.ValueCoding.Code
			}
			options = append(options, FieldOption{Label: label, Value: ao.ValueCoding.Code})
		case ao.ValueString != "":
			options = append(options, FieldOption{Label: ao.ValueString, Value: ao.ValueString})
		}
	}
	return options
}

func organisationID(identifiers []fhir.Identifier) string {
	for _, id := range identifiers {
		if id.System == OrganisationIdentifierSystem {
			return id.Value
		}
	}
	if len(identifiers) > 0 {
		return identifiers[0].Value
	}
	return ""
}

func category(codes []fhir.Coding) string {
	for _, c := range codes {
		if c.System == CategoryCodeSystem {
			return c.Code
		}
	}
	if len(codes) > 0 {
		return codes[0].Code
	}
	return ""
}

// publicationStatus maps a lifecycle status to FHIR. unknown is never produced.
func publicationStatus(s FormStatus) string {
	switch s {
	case StatusPublished:
		return fhirmodels.PublicationStatusActive
	case StatusArchived:
		return fhirmodels.PublicationStatusRetired
	default:
		return fhirmodels.PublicationStatusDraft
	}
}

// formStatus maps a FHIR publication status to a lifecycle status. unknown
// and unrecognised codes collapse to draft.
func formStatus(s string) FormStatus {
	switch s {
	case fhirmodels.PublicationStatusActive:
		return StatusPublished
	case fhirmodels.PublicationStatusRetired:
		return StatusArchived
	default:
		return StatusDraft
	}
}
