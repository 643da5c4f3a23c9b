package forms

import "time"

// FieldKind is the internal field-kind tag of a FormField.
type FieldKind string

const (
	KindInput        FieldKind = "input"
	KindTextarea     FieldKind = "textarea"
	KindNumber       FieldKind = "number"
	KindDropdown     FieldKind = "dropdown"
	KindRadio        FieldKind = "radio"
	KindCheckbox     FieldKind = "checkbox"
	KindBoolean      FieldKind = "boolean"
	KindDate         FieldKind = "date"
	KindSignature    FieldKind = "signature"
	KindGroup        FieldKind = "group"
	KindServiceGroup FieldKind = "service-group"
)

var knownKinds = map[FieldKind]bool{
	KindInput: true, KindTextarea: true, KindNumber: true,
	KindDropdown: true, KindRadio: true, KindCheckbox: true,
	KindBoolean: true, KindDate: true, KindSignature: true,
	KindGroup: true, KindServiceGroup: true,
}

// IsKnownKind reports whether k is one of the eleven field kinds.
func IsKnownKind(k FieldKind) bool { return knownKinds[k] }

// Visibility controls who may fill in a form.
type Visibility string

const (
	VisibilityInternal Visibility = "Internal"
	VisibilityExternal Visibility = "External"
)

// FormStatus is the lifecycle status of a Form.
type FormStatus string

const (
	StatusDraft     FormStatus = "draft"
	StatusPublished FormStatus = "published"
	StatusArchived  FormStatus = "archived"
)

// FieldOption is one selectable choice of a dropdown, radio or checkbox field.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormField is one node of a form schema. Kind selects which of the
// kind-specific attributes are meaningful: Options and Multiple for choice
// kinds, Fields for group, Services for service-group.
type FormField struct {
	ID          string         `json:"id" validate:"required"`
	Kind        FieldKind      `json:"type" validate:"required,field_kind"`
	Label       string         `json:"label"`
	Placeholder string         `json:"placeholder,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Order       *int           `json:"order,omitempty"`
	Group       string         `json:"group,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	Options     []FieldOption  `json:"options,omitempty" validate:"dive"`
	Multiple    bool           `json:"multiple,omitempty"`
	Fields      []FormField    `json:"fields,omitempty" validate:"dive"`
	Services    []string       `json:"services,omitempty"`
}

// IsChoice reports whether the field answers with option codes.
func (f FormField) IsChoice() bool {
	return f.Kind == KindDropdown || f.Kind == KindRadio || f.Kind == KindCheckbox
}

// RepeatsAnswers reports whether the field's answer is always a list.
func (f FormField) RepeatsAnswers() bool {
	return f.Kind == KindCheckbox || f.Multiple
}

// Form is a form definition as authored in the form builder.
type Form struct {
	ID          string      `json:"id,omitempty"`
	OrgID       string      `json:"orgId,omitempty"`
	Name        string      `json:"name"`
	Category    string      `json:"category,omitempty"`
	Description string      `json:"description,omitempty"`
	Visibility  Visibility  `json:"visibilityType,omitempty" validate:"omitempty,oneof=Internal External"`
	ServiceIDs  []string    `json:"serviceId,omitempty"`
	Species     []string    `json:"speciesFilter,omitempty"`
	Status      FormStatus  `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
	Schema      []FormField `json:"schema" validate:"dive"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	UpdatedBy   string      `json:"updatedBy,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// FormSubmission is one set of answers to a Form. Answers maps field id to a
// value whose shape depends on the field kind.
type FormSubmission struct {
	ID            string         `json:"id,omitempty"`
	FormID        string         `json:"formId"`
	FormVersion   int            `json:"formVersion"`
	AppointmentID string         `json:"appointmentId,omitempty"`
	CompanionID   string         `json:"companionId,omitempty"`
	ParentID      string         `json:"parentId,omitempty"`
	SubmittedBy   string         `json:"submittedBy,omitempty"`
	Answers       map[string]any `json:"answers"`
	SubmittedAt   time.Time      `json:"submittedAt"`
}

// FlattenFields indexes every field of a schema tree, nested group children
// included, by id.
func FlattenFields(schema []FormField) map[string]FormField {
	index := make(map[string]FormField)
	var walk func(fields []FormField)
	walk = func(fields []FormField) {
		for _, f := range fields {
			index[f.ID] = f
			if f.Kind == KindGroup {
				walk(f.Fields)
			}
		}
	}
	walk(schema)
	return index
}

// CountFields returns the number of fields in a schema tree, groups included.
func CountFields(schema []FormField) int {
	n := 0
	for _, f := range schema {
		n++
		if f.Kind == KindGroup {
			n += CountFields(f.Fields)
		}
	}
	return n
}
