package fhir

// Questionnaire is the subset of the FHIR R4 Questionnaire resource that the
// form engine reads and writes. Unknown elements of foreign documents are
// dropped on unmarshal.
type Questionnaire struct {
	ResourceType string              `json:"resourceType"`
	ID           string              `json:"id,omitempty"`
	Meta         *Meta               `json:"meta,omitempty"`
	Extension    []Extension         `json:"extension,omitempty"`
	Identifier   []Identifier        `json:"identifier,omitempty"`
	Title        string              `json:"title,omitempty"`
	Status       string              `json:"status"`
	Description  string              `json:"description,omitempty"`
	Code         []Coding            `json:"code,omitempty"`
	Item         []QuestionnaireItem `json:"item,omitempty"`
}

// QuestionnaireItem is a question or group within a Questionnaire.
type QuestionnaireItem struct {
	Extension    []Extension                     `json:"extension,omitempty"`
	LinkID       string                          `json:"linkId"`
	Text         string                          `json:"text,omitempty"`
	Type         string                          `json:"type"`
	Required     bool                            `json:"required,omitempty"`
	Repeats      bool                            `json:"repeats,omitempty"`
	AnswerOption []QuestionnaireItemAnswerOption `json:"answerOption,omitempty"`
	Item         []QuestionnaireItem             `json:"item,omitempty"`
}

// QuestionnaireItemAnswerOption is a permitted answer for a choice item.
type QuestionnaireItemAnswerOption struct {
	ValueCoding *Coding `json:"valueCoding,omitempty"`
	ValueString string  `json:"valueString,omitempty"`
}

// QuestionnaireResponse is a filled-in Questionnaire.
type QuestionnaireResponse struct {
	ResourceType  string                      `json:"resourceType"`
	ID            string                      `json:"id,omitempty"`
	Meta          *Meta                       `json:"meta,omitempty"`
	Extension     []Extension                 `json:"extension,omitempty"`
	Questionnaire string                      `json:"questionnaire,omitempty"`
	Status        string                      `json:"status"`
	Authored      string                      `json:"authored,omitempty"`
	Item          []QuestionnaireResponseItem `json:"item,omitempty"`
}

// QuestionnaireResponseItem mirrors a QuestionnaireItem by LinkID.
type QuestionnaireResponseItem struct {
	LinkID string                            `json:"linkId"`
	Text   string                            `json:"text,omitempty"`
	Answer []QuestionnaireResponseItemAnswer `json:"answer,omitempty"`
	Item   []QuestionnaireResponseItem       `json:"item,omitempty"`
}

// QuestionnaireResponseItemAnswer holds exactly one value[x].
type QuestionnaireResponseItemAnswer struct {
	ValueBoolean    *bool       `json:"valueBoolean,omitempty"`
	ValueDecimal    *float64    `json:"valueDecimal,omitempty"`
	ValueInteger    *int        `json:"valueInteger,omitempty"`
	ValueDate       string      `json:"valueDate,omitempty"`
	ValueDateTime   string      `json:"valueDateTime,omitempty"`
	ValueString     *string     `json:"valueString,omitempty"`
	ValueCoding     *Coding     `json:"valueCoding,omitempty"`
	ValueAttachment *Attachment `json:"valueAttachment,omitempty"`
}
