package forms

import (
	"sort"
	"strconv"

	"github.com/formfhir/formfhir/internal/platform/fhir"
	"github.com/formfhir/formfhir/pkg/fhirmodels"
)

const defaultFormVersion = 1

// ToQuestionnaireResponse converts a submission into a QuestionnaireResponse.
// With a schema the item tree mirrors the schema's groups and answers for
// unknown ids are dropped. Without one, answers become a flat item list
// ordered by key.
func ToQuestionnaireResponse(sub *FormSubmission, schema []FormField) *fhir.QuestionnaireResponse {
	if sub == nil {
		return nil
	}
	qr := &fhir.QuestionnaireResponse{
		ResourceType: fhirmodels.ResourceTypeQuestionnaireResponse,
		ID:           sub.ID,
		Extension:    submissionExtensions(sub),
		Status:       fhirmodels.ResponseStatusCompleted,
	}
	if sub.FormID != "" {
		version := ""
		if sub.FormVersion > 0 {
			version = strconv.Itoa(sub.FormVersion)
		}
		qr.Questionnaire = fhir.FormatCanonical(fhirmodels.ResourceTypeQuestionnaire, sub.FormID, version)
	}
	if !sub.SubmittedAt.IsZero() {
		qr.Authored = formatDateTime(sub.SubmittedAt)
	}
	if len(schema) > 0 {
		qr.Item = responseItems(schema, sub.Answers)
	} else {
		qr.Item = untypedResponseItems(sub.Answers)
	}
	return qr
}

// FromQuestionnaireResponse converts a QuestionnaireResponse back into a
// submission. Items are matched against schema by linkId at any depth; items
// the schema does not know are decoded from their answer types. It returns a
// *ResourceTypeError when qr is not a QuestionnaireResponse.
func FromQuestionnaireResponse(qr *fhir.QuestionnaireResponse, schema []FormField) (*FormSubmission, error) {
	if qr == nil {
		return nil, &ResourceTypeError{Expected: fhirmodels.ResourceTypeQuestionnaireResponse}
	}
	if qr.ResourceType != fhirmodels.ResourceTypeQuestionnaireResponse {
		return nil, &ResourceTypeError{Expected: fhirmodels.ResourceTypeQuestionnaireResponse, Got: qr.ResourceType}
	}

	formID, refVersion := fhir.ParseCanonical(qr.Questionnaire)
	sub := &FormSubmission{
		ID:          qr.ID,
		FormID:      formID,
		FormVersion: formVersion(qr.Extension, refVersion),
		Answers:     make(map[string]any),
	}
	applySubmissionExtensions(sub, qr.Extension)
	if t, ok := parseDateTime(qr.Authored); ok {
		sub.SubmittedAt = t
	}
	decodeResponseItems(qr.Item, FlattenFields(schema), sub.Answers)
	return sub, nil
}

// formVersion resolves the form version: the version extension first, then
// the reference's "|version" suffix, then 1.
func formVersion(exts []fhir.Extension, refVersion string) int {
	if ext := findExtension(exts, ExtResponseFormVersion); ext != nil && ext.ValueInteger != nil {
		return *ext.ValueInteger
	}
	if n, err := strconv.Atoi(refVersion); err == nil {
		return n
	}
	return defaultFormVersion
}

func responseItems(fields []FormField, answers map[string]any) []fhir.QuestionnaireResponseItem {
	var items []fhir.QuestionnaireResponseItem
	for _, field := range fields {
		if field.Kind == KindGroup {
			children := responseItems(field.Fields, answers)
			if len(children) == 0 {
				continue
			}
			items = append(items, fhir.QuestionnaireResponseItem{LinkID: field.ID, Text: field.Label, Item: children})
			continue
		}
		value, ok := answers[field.ID]
		if !ok {
			continue
		}
		encoded := EncodeAnswer(field, value)
		if len(encoded) == 0 {
			continue
		}
		items = append(items, fhir.QuestionnaireResponseItem{LinkID: field.ID, Text: field.Label, Answer: encoded})
	}
	return items
}

func untypedResponseItems(answers map[string]any) []fhir.QuestionnaireResponseItem {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []fhir.QuestionnaireResponseItem
	for _, k := range keys {
		encoded := EncodeUntypedAnswer(answers[k])
		if len(encoded) == 0 {
			continue
		}
		items = append(items, fhir.QuestionnaireResponseItem{LinkID: k, Answer: encoded})
	}
	return items
}

func decodeResponseItems(items []fhir.QuestionnaireResponseItem, index map[string]FormField, answers map[string]any) {
	for _, item := range items {
		field, known := index[item.LinkID]
		if len(item.Answer) > 0 && !(known && field.Kind == KindGroup) {
			var (
				value any
				ok    bool
			)
			if known {
				value, ok = DecodeAnswer(item.Answer, field)
			} else {
				value, ok = DecodeUntypedAnswer(item.Answer)
			}
			if ok {
				answers[item.LinkID] = value
			}
		}
		decodeResponseItems(item.Item, index, answers)
	}
}
