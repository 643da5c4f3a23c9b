package forms

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/formfhir/formfhir/internal/platform/fhir"
)

func sampleSubmission() *FormSubmission {
	return &FormSubmission{
		ID:            "sub-1",
		FormID:        "form-1",
		FormVersion:   3,
		AppointmentID: "appt-1",
		CompanionID:   "pet-1",
		ParentID:      "owner-1",
		SubmittedBy:   "vet-1",
		SubmittedAt:   time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
		Answers: map[string]any{
			"name":          "Rex",
			"notes":         "Limps slightly",
			"weight":        float64(31.5),
			"size":          "l",
			"tags":          []any{"calm"},
			"temper":        "y",
			"symptoms":      []any{"a", "b"},
			"consent":       true,
			"visit":         "2024-03-05",
			"sign":          "AAAA",
			"allergies":     "none",
			"previous_date": "2023-11-20",
			"services":      "svc-2",
		},
	}
}

func TestToQuestionnaireResponse_WithSchema(t *testing.T) {
	qr := ToQuestionnaireResponse(sampleSubmission(), sampleSchema())

	if qr.ResourceType != "QuestionnaireResponse" {
		t.Errorf("resourceType = %q", qr.ResourceType)
	}
	if qr.Questionnaire != "Questionnaire/form-1|3" {
		t.Errorf("questionnaire = %q, want Questionnaire/form-1|3", qr.Questionnaire)
	}
	if qr.Status != "completed" {
		t.Errorf("status = %q, want completed", qr.Status)
	}
	if qr.Authored != "2024-03-05T09:30:00Z" {
		t.Errorf("authored = %q", qr.Authored)
	}
	if len(qr.Extension) != 5 {
		t.Errorf("len(extension) = %d, want 5", len(qr.Extension))
	}

	var history *fhir.QuestionnaireResponseItem
	for i := range qr.Item {
		if qr.Item[i].LinkID == "history" {
			history = &qr.Item[i]
		}
	}
	if history == nil {
		t.Fatal("history group missing from response")
	}
	if len(history.Answer) != 0 || len(history.Item) != 2 {
		t.Fatalf("history = %+v, want two child items and no answers", history)
	}
	if history.Item[1].LinkID != "previous" || len(history.Item[1].Item) != 1 || history.Item[1].Item[0].LinkID != "previous_date" {
		t.Errorf("previous group = %+v", history.Item[1])
	}
}

func TestSubmissionRoundTrip_WithSchema(t *testing.T) {
	in := sampleSubmission()
	schema := sampleSchema()
	out, err := FromQuestionnaireResponse(ToQuestionnaireResponse(in, schema), schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out.Answers, in.Answers) {
		t.Errorf("answers mismatch\n got: %#v\nwant: %#v", out.Answers, in.Answers)
	}
	if out.ID != in.ID || out.FormID != in.FormID || out.FormVersion != in.FormVersion {
		t.Errorf("id/form/version = %q/%q/%d", out.ID, out.FormID, out.FormVersion)
	}
	if out.AppointmentID != in.AppointmentID || out.CompanionID != in.CompanionID || out.ParentID != in.ParentID || out.SubmittedBy != in.SubmittedBy {
		t.Errorf("provenance = %+v", out)
	}
	if !out.SubmittedAt.Equal(in.SubmittedAt) {
		t.Errorf("submittedAt = %v, want %v", out.SubmittedAt, in.SubmittedAt)
	}
}

func TestToQuestionnaireResponse_DropsUnknownKeysAndEmptyGroups(t *testing.T) {
	sub := &FormSubmission{
		FormID:  "f",
		Answers: map[string]any{"name": "Rex", "stray": "x"},
	}
	qr := ToQuestionnaireResponse(sub, sampleSchema())
	if len(qr.Item) != 1 || qr.Item[0].LinkID != "name" {
		t.Errorf("items = %+v, want only name", qr.Item)
	}
}

func TestToQuestionnaireResponse_Schemaless(t *testing.T) {
	sub := &FormSubmission{
		FormID: "f",
		Answers: map[string]any{
			"b": true,
			"a": "x",
			"d": float64(2),
			"c": []any{"p", "q"},
		},
	}
	qr := ToQuestionnaireResponse(sub, nil)
	var ids []string
	for _, item := range qr.Item {
		ids = append(ids, item.LinkID)
	}
	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("item order = %v, want %v", ids, want)
	}
	if qr.Questionnaire != "Questionnaire/f" {
		t.Errorf("questionnaire = %q, want Questionnaire/f", qr.Questionnaire)
	}

	out, err := FromQuestionnaireResponse(qr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out.Answers, sub.Answers) {
		t.Errorf("answers = %#v, want %#v", out.Answers, sub.Answers)
	}
}

func TestToQuestionnaireResponse_OmitsEmptyProvenance(t *testing.T) {
	qr := ToQuestionnaireResponse(&FormSubmission{Answers: map[string]any{}}, nil)
	if qr.Extension != nil {
		t.Errorf("extension = %+v, want nil", qr.Extension)
	}
	if qr.Questionnaire != "" || qr.Authored != "" {
		t.Errorf("questionnaire/authored = %q/%q, want empty", qr.Questionnaire, qr.Authored)
	}
	if qr.Item != nil {
		t.Errorf("item = %+v, want nil", qr.Item)
	}
}

func TestFromQuestionnaireResponse_FormVersion(t *testing.T) {
	versionExt := func(v int) []fhir.Extension {
		return []fhir.Extension{{URL: ExtResponseFormVersion, ValueInteger: &v}}
	}
	tests := []struct {
		name        string
		ref         string
		exts        []fhir.Extension
		wantForm    string
		wantVersion int
	}{
		{"extension wins", "Questionnaire/f1|2", versionExt(5), "f1", 5},
		{"reference suffix", "Questionnaire/f1|2", nil, "f1", 2},
		{"absolute canonical", "https://forms.example/Questionnaire/f2|7", nil, "f2", 7},
		{"no version", "Questionnaire/f1", nil, "f1", 1},
		{"non-numeric suffix", "Questionnaire/f1|v2", nil, "f1", 1},
		{"absent reference", "", nil, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qr := &fhir.QuestionnaireResponse{
				ResourceType:  "QuestionnaireResponse",
				Questionnaire: tt.ref,
				Extension:     tt.exts,
			}
			sub, err := FromQuestionnaireResponse(qr, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sub.FormID != tt.wantForm {
				t.Errorf("formId = %q, want %q", sub.FormID, tt.wantForm)
			}
			if sub.FormVersion != tt.wantVersion {
				t.Errorf("formVersion = %d, want %d", sub.FormVersion, tt.wantVersion)
			}
			if sub.Answers == nil {
				t.Error("answers = nil, want empty map")
			}
		})
	}
}

func TestFromQuestionnaireResponse_WrongResourceType(t *testing.T) {
	_, err := FromQuestionnaireResponse(&fhir.QuestionnaireResponse{ResourceType: "Questionnaire"}, nil)
	var rte *ResourceTypeError
	if !errors.As(err, &rte) {
		t.Fatalf("err = %v, want *ResourceTypeError", err)
	}
	if rte.Expected != "QuestionnaireResponse" || rte.Got != "Questionnaire" {
		t.Errorf("error = %+v", rte)
	}
	if _, err := FromQuestionnaireResponse(nil, nil); !errors.Is(err, ErrResourceType) {
		t.Errorf("nil response: err = %v, want ErrResourceType", err)
	}
}

func TestFromQuestionnaireResponse_CheckboxSingleAnswerIsList(t *testing.T) {
	schema := []FormField{{ID: "c", Kind: KindCheckbox}, {ID: "d", Kind: KindDropdown}}
	qr := &fhir.QuestionnaireResponse{
		ResourceType: "QuestionnaireResponse",
		Item: []fhir.QuestionnaireResponseItem{
			{LinkID: "c", Answer: []fhir.QuestionnaireResponseItemAnswer{{ValueCoding: &fhir.Coding{Code: "a"}}}},
			{LinkID: "d", Answer: []fhir.QuestionnaireResponseItemAnswer{
				{ValueCoding: &fhir.Coding{Code: "x"}},
				{ValueCoding: &fhir.Coding{Code: "y"}},
			}},
		},
	}
	sub, err := FromQuestionnaireResponse(qr, schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(sub.Answers["c"], []any{"a"}) {
		t.Errorf("c = %#v, want [a]", sub.Answers["c"])
	}
	if sub.Answers["d"] != "x" {
		t.Errorf("d = %#v, want scalar x", sub.Answers["d"])
	}
}

func TestFromQuestionnaireResponse_UnknownLinkIDDecodedByValueType(t *testing.T) {
	schema := []FormField{{ID: "known", Kind: KindInput}}
	qr := &fhir.QuestionnaireResponse{
		ResourceType: "QuestionnaireResponse",
		Item: []fhir.QuestionnaireResponseItem{
			{LinkID: "known", Answer: []fhir.QuestionnaireResponseItemAnswer{{ValueString: ptrStr("k")}}},
			{LinkID: "extra", Answer: []fhir.QuestionnaireResponseItemAnswer{{ValueInteger: ptrInt(4)}}},
			{LinkID: "section", Item: []fhir.QuestionnaireResponseItem{
				{LinkID: "nested", Answer: []fhir.QuestionnaireResponseItemAnswer{{ValueBoolean: ptrBool(false)}}},
			}},
		},
	}
	sub, err := FromQuestionnaireResponse(qr, schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"known": "k", "extra": float64(4), "nested": false}
	if !reflect.DeepEqual(sub.Answers, want) {
		t.Errorf("answers = %#v, want %#v", sub.Answers, want)
	}
}

func TestToQuestionnaireResponse_Deterministic(t *testing.T) {
	for _, schema := range [][]FormField{sampleSchema(), nil} {
		first, err := json.Marshal(ToQuestionnaireResponse(sampleSubmission(), schema))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		for i := 0; i < 5; i++ {
			next, _ := json.Marshal(ToQuestionnaireResponse(sampleSubmission(), schema))
			if !bytes.Equal(first, next) {
				t.Fatalf("output differs between runs:\n%s\n%s", first, next)
			}
		}
	}
}

func TestToQuestionnaireResponse_Nil(t *testing.T) {
	if qr := ToQuestionnaireResponse(nil, nil); qr != nil {
		t.Errorf("ToQuestionnaireResponse(nil) = %+v, want nil", qr)
	}
}
