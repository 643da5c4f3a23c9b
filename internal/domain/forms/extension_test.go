package forms

import (
	"reflect"
	"testing"
	"time"

	"github.com/formfhir/formfhir/internal/platform/fhir"
)

func TestFieldExtensions_Order(t *testing.T) {
	field := FormField{
		Kind:        KindInput,
		Placeholder: "p",
		Order:       ptrInt(3),
		Group:       "g",
		Meta:        map[string]any{"k": "v"},
	}
	exts := fieldExtensions(field)
	want := []string{ExtFieldType, ExtFieldPlaceholder, ExtFieldOrder, ExtFieldGroup, ExtFieldMeta}
	if len(exts) != len(want) {
		t.Fatalf("len(exts) = %d, want %d", len(exts), len(want))
	}
	for i, url := range want {
		if exts[i].URL != url {
			t.Errorf("exts[%d].URL = %q, want %q", i, exts[i].URL, url)
		}
	}
	if exts[2].ValueInteger == nil || *exts[2].ValueInteger != 3 {
		t.Errorf("order extension = %v, want 3", exts[2].ValueInteger)
	}
	if exts[4].ValueString != `{"k":"v"}` {
		t.Errorf("meta extension = %q, want {\"k\":\"v\"}", exts[4].ValueString)
	}
}

func TestFieldExtensions_OnlyTypeTagWhenNothingElse(t *testing.T) {
	exts := fieldExtensions(FormField{ID: "a", Kind: KindBoolean})
	if len(exts) != 1 || exts[0].URL != ExtFieldType || exts[0].ValueCode != "boolean" {
		t.Errorf("exts = %+v, want only the type tag", exts)
	}
}

func TestFormExtensions_NilWhenNothingApplies(t *testing.T) {
	if exts := formExtensions(&Form{Name: "empty"}); exts != nil {
		t.Errorf("formExtensions = %+v, want nil", exts)
	}
	if exts := submissionExtensions(&FormSubmission{FormID: "f"}); exts != nil {
		t.Errorf("submissionExtensions = %+v, want nil", exts)
	}
}

func TestApplyFieldExtensions_RoundTrip(t *testing.T) {
	in := FormField{
		Kind:        KindNumber,
		Placeholder: "kg",
		Order:       ptrInt(7),
		Group:       "vitals",
		Meta:        map[string]any{"unit": "kg", "limits": []any{float64(0), float64(200)}},
	}
	out := FormField{Kind: KindNumber}
	applyFieldExtensions(&out, fieldExtensions(in))

	if out.Placeholder != in.Placeholder {
		t.Errorf("Placeholder = %q, want %q", out.Placeholder, in.Placeholder)
	}
	if out.Group != in.Group {
		t.Errorf("Group = %q, want %q", out.Group, in.Group)
	}
	if out.Order == nil || *out.Order != 7 {
		t.Errorf("Order = %v, want 7", out.Order)
	}
	if !reflect.DeepEqual(out.Meta, in.Meta) {
		t.Errorf("Meta = %#v, want %#v", out.Meta, in.Meta)
	}
}

func TestApplyFieldExtensions_MalformedMeta(t *testing.T) {
	for _, blob := range []string{"{not json", "[1,2]", `"text"`, "null", "42"} {
		exts := []fhir.Extension{stringExtension(ExtFieldMeta, blob)}
		field := FormField{Kind: KindInput}
		applyFieldExtensions(&field, exts)
		if field.Meta != nil {
			t.Errorf("meta %q: Meta = %#v, want nil", blob, field.Meta)
		}
		if !metaIsMalformed(exts) {
			t.Errorf("meta %q: metaIsMalformed = false, want true", blob)
		}
	}
}

func TestApplyFieldExtensions_EmptyObjectMeta(t *testing.T) {
	exts := []fhir.Extension{stringExtension(ExtFieldMeta, "{}")}
	field := FormField{Kind: KindInput}
	applyFieldExtensions(&field, exts)
	if field.Meta != nil {
		t.Errorf("Meta = %#v, want nil", field.Meta)
	}
	if metaIsMalformed(exts) {
		t.Error("metaIsMalformed({}) = true, want false")
	}
}

func TestServiceGroup_ServicesTravelInMeta(t *testing.T) {
	in := FormField{
		Kind:     KindServiceGroup,
		Services: []string{"svc-1", "svc-2"},
		Meta:     map[string]any{"k": "v"},
	}
	exts := fieldExtensions(in)
	blob := extensionString(exts, ExtFieldMeta)
	if want := `{"_services":["svc-1","svc-2"],"k":"v"}`; blob != want {
		t.Errorf("meta blob = %s, want %s", blob, want)
	}
	if _, ok := in.Meta[servicesMetaKey]; ok {
		t.Error("encoding mutated the caller's meta map")
	}

	out := FormField{Kind: KindServiceGroup}
	applyFieldExtensions(&out, exts)
	if !reflect.DeepEqual(out.Services, in.Services) {
		t.Errorf("Services = %v, want %v", out.Services, in.Services)
	}
	if !reflect.DeepEqual(out.Meta, in.Meta) {
		t.Errorf("Meta = %#v, want %#v", out.Meta, in.Meta)
	}
}

func TestServiceGroup_CallerServicesKeyIsKept(t *testing.T) {
	in := FormField{
		Kind:     KindServiceGroup,
		Services: []string{"svc-1"},
		Meta:     map[string]any{"services": []any{"legacy"}, "k": "v"},
	}
	out := FormField{Kind: KindServiceGroup}
	applyFieldExtensions(&out, fieldExtensions(in))
	if !reflect.DeepEqual(out.Services, []string{"svc-1"}) {
		t.Errorf("Services = %v, want [svc-1]", out.Services)
	}
	if !reflect.DeepEqual(out.Meta, in.Meta) {
		t.Errorf("Meta = %#v, want %#v", out.Meta, in.Meta)
	}

	bare := FormField{Kind: KindServiceGroup, Meta: map[string]any{"services": []any{"legacy"}}}
	out = FormField{Kind: KindServiceGroup}
	applyFieldExtensions(&out, fieldExtensions(bare))
	if out.Services != nil {
		t.Errorf("Services = %v, want nil", out.Services)
	}
	if !reflect.DeepEqual(out.Meta, bare.Meta) {
		t.Errorf("Meta = %#v, want %#v", out.Meta, bare.Meta)
	}
}

func TestServiceGroup_OnlyServices(t *testing.T) {
	in := FormField{Kind: KindServiceGroup, Services: []string{"svc-1"}}
	out := FormField{Kind: KindServiceGroup}
	applyFieldExtensions(&out, fieldExtensions(in))
	if !reflect.DeepEqual(out.Services, []string{"svc-1"}) {
		t.Errorf("Services = %v, want [svc-1]", out.Services)
	}
	if out.Meta != nil {
		t.Errorf("Meta = %#v, want nil", out.Meta)
	}
}

func TestFormExtensions_RepeatedRelationsKeepOrder(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	in := &Form{
		Visibility: VisibilityInternal,
		ServiceIDs: []string{"b", "a", "c"},
		Species:    []string{"dog", "cat"},
		CreatedBy:  "u1",
		CreatedAt:  &created,
	}
	exts := formExtensions(in)

	services := 0
	for _, ext := range exts {
		if ext.URL == ExtFormService {
			services++
		}
	}
	if services != 3 {
		t.Errorf("form-service extensions = %d, want 3", services)
	}

	out := &Form{}
	applyFormExtensions(out, exts)
	if out.Visibility != VisibilityInternal {
		t.Errorf("Visibility = %q, want Internal", out.Visibility)
	}
	if !reflect.DeepEqual(out.ServiceIDs, in.ServiceIDs) {
		t.Errorf("ServiceIDs = %v, want %v", out.ServiceIDs, in.ServiceIDs)
	}
	if !reflect.DeepEqual(out.Species, in.Species) {
		t.Errorf("Species = %v, want %v", out.Species, in.Species)
	}
	if out.CreatedBy != "u1" {
		t.Errorf("CreatedBy = %q, want u1", out.CreatedBy)
	}
	if out.CreatedAt == nil || !out.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", out.CreatedAt, created)
	}
	if out.UpdatedAt != nil {
		t.Errorf("UpdatedAt = %v, want nil", out.UpdatedAt)
	}
}

func TestSubmissionExtensions(t *testing.T) {
	in := &FormSubmission{
		FormVersion:   4,
		AppointmentID: "appt-1",
		CompanionID:   "pet-1",
		ParentID:      "owner-1",
		SubmittedBy:   "vet-1",
	}
	exts := submissionExtensions(in)
	if len(exts) != 5 {
		t.Fatalf("len(exts) = %d, want 5", len(exts))
	}
	if ext := findExtension(exts, ExtResponseFormVersion); ext == nil || ext.ValueInteger == nil || *ext.ValueInteger != 4 {
		t.Errorf("version extension = %+v, want 4", ext)
	}

	out := &FormSubmission{}
	applySubmissionExtensions(out, exts)
	if out.AppointmentID != "appt-1" || out.CompanionID != "pet-1" || out.ParentID != "owner-1" || out.SubmittedBy != "vet-1" {
		t.Errorf("provenance = %+v", out)
	}
}

func TestExtensionString_AcceptsValueCode(t *testing.T) {
	exts := []fhir.Extension{{URL: ExtFormVisibility, ValueCode: "External"}}
	if got := extensionString(exts, ExtFormVisibility); got != "External" {
		t.Errorf("extensionString = %q, want External", got)
	}
	if got := extensionString(exts, ExtFormCreatedBy); got != "" {
		t.Errorf("extensionString(missing) = %q, want empty", got)
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-03-05T10:30:00Z", true},
		{"2024-03-05T10:30:00.123456789+02:00", true},
		{"2024-03-05T10:30:00", true},
		{"2024-03-05", true},
		{"2024-02-30", false},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := parseDateTime(tt.in); ok != tt.ok {
			t.Errorf("parseDateTime(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
	}
}
