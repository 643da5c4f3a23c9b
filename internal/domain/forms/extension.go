package forms

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/formfhir/formfhir/internal/platform/fhir"
)

const extensionBase = "https://formfhir.dev/fhir/StructureDefinition/"

// Extension URLs, one per metadata concern. One-to-many relations repeat
// the same URL once per value.
const (
	ExtFieldType           = extensionBase + "field-type"
	ExtFieldPlaceholder    = extensionBase + "field-placeholder"
	ExtFieldOrder          = extensionBase + "field-order"
	ExtFieldGroup          = extensionBase + "field-group"
	ExtFieldMeta           = extensionBase + "field-meta"
	ExtFormVisibility      = extensionBase + "form-visibility"
	ExtFormService         = extensionBase + "form-service"
	ExtFormSpecies         = extensionBase + "form-species"
	ExtFormCreatedBy       = extensionBase + "form-created-by"
	ExtFormUpdatedBy       = extensionBase + "form-updated-by"
	ExtFormCreatedAt       = extensionBase + "form-created-at"
	ExtFormUpdatedAt       = extensionBase + "form-updated-at"
	ExtResponseFormVersion = extensionBase + "response-form-version"
	ExtResponseAppointment = extensionBase + "response-appointment"
	ExtResponseCompanion   = extensionBase + "response-companion"
	ExtResponseParent      = extensionBase + "response-parent"
	ExtResponseSubmittedBy = extensionBase + "response-submitted-by"
)

const (
	OptionCodeSystem             = "https://formfhir.dev/fhir/CodeSystem/form-field-option"
	CategoryCodeSystem           = "https://formfhir.dev/fhir/CodeSystem/form-category"
	OrganisationIdentifierSystem = "https://formfhir.dev/fhir/sid/organisation"
)

// servicesMetaKey holds a service-group's service ids inside the field-meta
// blob. The key is reserved on service-group fields; caller meta keys such as
// "services" pass through untouched.
const servicesMetaKey = "_services"

func fieldExtensions(field FormField) []fhir.Extension {
	var exts []fhir.Extension
	if field.Kind != "" {
		exts = append(exts, fhir.Extension{URL: ExtFieldType, ValueCode: string(field.Kind)})
	}
	if field.Placeholder != "" {
		exts = append(exts, stringExtension(ExtFieldPlaceholder, field.Placeholder))
	}
	if field.Order != nil {
		order := *field.Order
		exts = append(exts, fhir.Extension{URL: ExtFieldOrder, ValueInteger: &order})
	}
	if field.Group != "" {
		exts = append(exts, stringExtension(ExtFieldGroup, field.Group))
	}
	if blob, ok := encodeMeta(fieldMeta(field)); ok {
		exts = append(exts, stringExtension(ExtFieldMeta, blob))
	}
	return exts
}

// applyFieldExtensions copies extension-borne attributes onto field. The
// field's Kind must already be resolved.
func applyFieldExtensions(field *FormField, exts []fhir.Extension) {
	field.Placeholder = extensionString(exts, ExtFieldPlaceholder)
	field.Group = extensionString(exts, ExtFieldGroup)
	if ext := findExtension(exts, ExtFieldOrder); ext != nil && ext.ValueInteger != nil {
		order := *ext.ValueInteger
		field.Order = &order
	}
	meta := decodeMeta(extensionString(exts, ExtFieldMeta))
	if field.Kind == KindServiceGroup {
		field.Services, meta = liftServices(meta)
	}
	field.Meta = meta
}

func fieldMeta(field FormField) map[string]any {
	if field.Kind != KindServiceGroup || len(field.Services) == 0 {
		return field.Meta
	}
	meta := make(map[string]any, len(field.Meta)+1)
	for k, v := range field.Meta {
		meta[k] = v
	}
	services := make([]any, len(field.Services))
	for i, s := range field.Services {
		services[i] = s
	}
	meta[servicesMetaKey] = services
	return meta
}

func liftServices(meta map[string]any) ([]string, map[string]any) {
	list, ok := meta[servicesMetaKey].([]any)
	if !ok {
		return nil, meta
	}
	var services []string
	for _, v := range list {
		if s, ok := v.(string); ok {
			services = append(services, s)
		}
	}
	rest := make(map[string]any, len(meta))
	for k, v := range meta {
		if k != servicesMetaKey {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		rest = nil
	}
	return services, rest
}

func formExtensions(form *Form) []fhir.Extension {
	var exts []fhir.Extension
	if form.Visibility != "" {
		exts = append(exts, fhir.Extension{URL: ExtFormVisibility, ValueCode: string(form.Visibility)})
	}
	for _, id := range form.ServiceIDs {
		exts = append(exts, stringExtension(ExtFormService, id))
	}
	for _, sp := range form.Species {
		exts = append(exts, stringExtension(ExtFormSpecies, sp))
	}
	if form.CreatedBy != "" {
		exts = append(exts, stringExtension(ExtFormCreatedBy, form.CreatedBy))
	}
	if form.UpdatedBy != "" {
		exts = append(exts, stringExtension(ExtFormUpdatedBy, form.UpdatedBy))
	}
	if form.CreatedAt != nil {
		exts = append(exts, fhir.Extension{URL: ExtFormCreatedAt, ValueDateTime: formatDateTime(*form.CreatedAt)})
	}
	if form.UpdatedAt != nil {
		exts = append(exts, fhir.Extension{URL: ExtFormUpdatedAt, ValueDateTime: formatDateTime(*form.UpdatedAt)})
	}
	return exts
}

func applyFormExtensions(form *Form, exts []fhir.Extension) {
	form.Visibility = Visibility(extensionString(exts, ExtFormVisibility))
	form.ServiceIDs = extensionStrings(exts, ExtFormService)
	form.Species = extensionStrings(exts, ExtFormSpecies)
	form.CreatedBy = extensionString(exts, ExtFormCreatedBy)
	form.UpdatedBy = extensionString(exts, ExtFormUpdatedBy)
	form.CreatedAt = extensionTime(exts, ExtFormCreatedAt)
	form.UpdatedAt = extensionTime(exts, ExtFormUpdatedAt)
}

func submissionExtensions(sub *FormSubmission) []fhir.Extension {
	var exts []fhir.Extension
	if sub.FormVersion > 0 {
		version := sub.FormVersion
		exts = append(exts, fhir.Extension{URL: ExtResponseFormVersion, ValueInteger: &version})
	}
	if sub.AppointmentID != "" {
		exts = append(exts, stringExtension(ExtResponseAppointment, sub.AppointmentID))
	}
	if sub.CompanionID != "" {
		exts = append(exts, stringExtension(ExtResponseCompanion, sub.CompanionID))
	}
	if sub.ParentID != "" {
		exts = append(exts, stringExtension(ExtResponseParent, sub.ParentID))
	}
	if sub.SubmittedBy != "" {
		exts = append(exts, stringExtension(ExtResponseSubmittedBy, sub.SubmittedBy))
	}
	return exts
}

func applySubmissionExtensions(sub *FormSubmission, exts []fhir.Extension) {
	sub.AppointmentID = extensionString(exts, ExtResponseAppointment)
	sub.CompanionID = extensionString(exts, ExtResponseCompanion)
	sub.ParentID = extensionString(exts, ExtResponseParent)
	sub.SubmittedBy = extensionString(exts, ExtResponseSubmittedBy)
}

// encodeMeta serialises free-form metadata. Empty or unserialisable metadata
// is omitted.
func encodeMeta(meta map[string]any) (string, bool) {
	if len(meta) == 0 {
		return "", false
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// decodeMeta parses a field-meta blob. Anything but a non-empty JSON object
// yields nil.
func decodeMeta(s string) map[string]any {
	if s == "" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(s), &meta); err != nil || len(meta) == 0 {
		return nil
	}
	return meta
}

// metaIsMalformed reports a field-meta blob that is present but unusable.
func metaIsMalformed(exts []fhir.Extension) bool {
	s := extensionString(exts, ExtFieldMeta)
	return s != "" && decodeMeta(s) == nil && s != "{}"
}

func stringExtension(url, value string) fhir.Extension {
	return fhir.Extension{URL: url, ValueString: value}
}

func findExtension(exts []fhir.Extension, url string) *fhir.Extension {
	for i := range exts {
		if exts[i].URL == url {
			return &exts[i]
		}
	}
	return nil
}

func extensionString(exts []fhir.Extension, url string) string {
	ext := findExtension(exts, url)
	if ext == nil {
		return ""
	}
	if ext.ValueString != "" {
		return ext.ValueString
	}
	return ext.ValueCode
}

// extensionStrings collects every value carried under url in document order.
func extensionStrings(exts []fhir.Extension, url string) []string {
	var values []string
	for _, ext := range exts {
		if ext.URL != url {
			continue
		}
		if ext.ValueString != "" {
			values = append(values, ext.ValueString)
		} else if ext.ValueCode != "" {
			values = append(values, ext.ValueCode)
		}
	}
	return values
}

func extensionTime(exts []fhir.Extension, url string) *time.Time {
	ext := findExtension(exts, url)
	if ext == nil {
		return nil
	}
	t, ok := parseDateTime(ext.ValueDateTime)
	if !ok {
		return nil
	}
	return &t
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", dateLayout}

func parseDateTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
