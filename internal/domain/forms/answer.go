package forms

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/formfhir/formfhir/internal/platform/fhir"
)

const dateLayout = "2006-01-02"

const defaultSignatureContentType = "image/png"

// EncodeAnswer converts one submitted value into FHIR answers according to the
// field kind. A list value yields one answer per element, in order. Values
// that cannot be represented (an invalid date, nil) are dropped.
func EncodeAnswer(field FormField, value any) []fhir.QuestionnaireResponseItemAnswer {
	var answers []fhir.QuestionnaireResponseItemAnswer
	for _, v := range answerValues(value) {
		if a, ok := encodeValue(field, v); ok {
			answers = append(answers, a)
		}
	}
	return answers
}

// DecodeAnswer is the inverse of EncodeAnswer. Checkbox and multiple fields
// always decode to a []any, every other field to its first decoded answer.
// The second result is false when no answer could be decoded.
func DecodeAnswer(answers []fhir.QuestionnaireResponseItemAnswer, field FormField) (any, bool) {
	var values []any
	for _, a := range answers {
		if v, ok := decodeValue(field, a); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, false
	}
	if field.RepeatsAnswers() {
		return values, true
	}
	return values[0], true
}

// EncodeUntypedAnswer encodes a value with no known field, choosing the
// answer type from the value's dynamic type.
func EncodeUntypedAnswer(value any) []fhir.QuestionnaireResponseItemAnswer {
	var answers []fhir.QuestionnaireResponseItemAnswer
	for _, v := range answerValues(value) {
		if a, ok := encodeUntyped(v); ok {
			answers = append(answers, a)
		}
	}
	return answers
}

// DecodeUntypedAnswer decodes answers with no known field: a single answer
// yields a scalar, several yield a []any.
func DecodeUntypedAnswer(answers []fhir.QuestionnaireResponseItemAnswer) (any, bool) {
	var values []any
	for _, a := range answers {
		if v, ok := decodeUntyped(a); ok {
			values = append(values, v)
		}
	}
	switch len(values) {
	case 0:
		return nil, false
	case 1:
		return values[0], true
	default:
		return values, true
	}
}

func encodeValue(field FormField, v any) (fhir.QuestionnaireResponseItemAnswer, bool) {
	var a fhir.QuestionnaireResponseItemAnswer
	if v == nil {
		return a, false
	}
	switch field.Kind {
	case KindBoolean:
		b := truthy(v)
		a.ValueBoolean = &b
	case KindDate:
		d, ok := formatDate(v)
		if !ok {
			return a, false
		}
		a.ValueDate = d
	case KindNumber:
		if n, ok := toNumber(v); ok {
			a.ValueDecimal = &n
		} else {
			s := stringify(v)
			a.ValueString = &s
		}
	case KindDropdown, KindRadio, KindCheckbox:
		code := stringify(v)
		a.ValueCoding = &fhir.Coding{
			System:  OptionCodeSystem,
			Code:    code,
			Display: optionLabel(field.Options, code),
		}
	case KindSignature:
		contentType, data := splitDataURI(stringify(v))
		a.ValueAttachment = &fhir.Attachment{ContentType: contentType, Data: data}
	default:
		s := stringify(v)
		a.ValueString = &s
	}
	return a, true
}

func decodeValue(field FormField, a fhir.QuestionnaireResponseItemAnswer) (any, bool) {
	switch field.Kind {
	case KindBoolean:
		if a.ValueBoolean != nil {
			return *a.ValueBoolean, true
		}
	case KindDate:
		if a.ValueDate != "" {
			return a.ValueDate, true
		}
		if t, ok := parseDateTime(a.ValueDateTime); ok {
			return t.Format(dateLayout), true
		}
	case KindNumber:
		if a.ValueDecimal != nil {
			return *a.ValueDecimal, true
		}
		if a.ValueInteger != nil {
			return float64(*a.ValueInteger), true
		}
		if a.ValueString != nil {
			return *a.ValueString, true
		}
	case KindDropdown, KindRadio, KindCheckbox:
		// The code is accepted even when no declared option matches it.
		if a.ValueCoding != nil {
			return a.ValueCoding.Code, true
		}
		if a.ValueString != nil {
			return *a.ValueString, true
		}
	case KindSignature:
		if a.ValueAttachment != nil {
			if a.ValueAttachment.Data != "" {
				return a.ValueAttachment.Data, true
			}
			if a.ValueAttachment.URL != "" {
				return a.ValueAttachment.URL, true
			}
		}
	default:
		if a.ValueString != nil {
			return *a.ValueString, true
		}
		return decodeUntyped(a)
	}
	return nil, false
}

func encodeUntyped(v any) (fhir.QuestionnaireResponseItemAnswer, bool) {
	var a fhir.QuestionnaireResponseItemAnswer
	switch x := v.(type) {
	case nil:
		return a, false
	case bool:
		a.ValueBoolean = &x
	case string:
		a.ValueString = &x
	default:
		if n, ok := toNumber(v); ok {
			a.ValueDecimal = &n
		} else {
			s := stringify(v)
			a.ValueString = &s
		}
	}
	return a, true
}

func decodeUntyped(a fhir.QuestionnaireResponseItemAnswer) (any, bool) {
	switch {
	case a.ValueBoolean != nil:
		return *a.ValueBoolean, true
	case a.ValueDecimal != nil:
		return *a.ValueDecimal, true
	case a.ValueInteger != nil:
		return float64(*a.ValueInteger), true
	case a.ValueDate != "":
		return a.ValueDate, true
	case a.ValueDateTime != "":
		return a.ValueDateTime, true
	case a.ValueString != nil:
		return *a.ValueString, true
	case a.ValueCoding != nil:
		return a.ValueCoding.Code, true
	case a.ValueAttachment != nil && a.ValueAttachment.Data != "":
		return a.ValueAttachment.Data, true
	case a.ValueAttachment != nil && a.ValueAttachment.URL != "":
		return a.ValueAttachment.URL, true
	}
	return nil, false
}

func answerValues(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		return toAnySlice(v)
	case []float64:
		return toAnySlice(v)
	case []int:
		return toAnySlice(v)
	case []bool:
		return toAnySlice(v)
	default:
		return []any{value}
	}
}

func toAnySlice[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return true
	}
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case int32:
		n = float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		n = f
	case interface{ Float64() (float64, error) }:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// formatDate renders v at day precision. Unparsable values report false.
// The day is the calendar day in the value's own offset, never shifted to UTC:
// "2024-03-05T23:30:00-05:00" is 2024-03-05.
func formatDate(v any) (string, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return x.Format(dateLayout), true
	case string:
		t, ok := parseDateTime(strings.TrimSpace(x))
		if !ok {
			return "", false
		}
		return t.Format(dateLayout), true
	default:
		return "", false
	}
}

// stringify returns strings unchanged and JSON text for anything else.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func optionLabel(options []FieldOption, code string) string {
	for _, opt := range options {
		if opt.Value == code {
			return opt.Label
		}
	}
	return ""
}

// splitDataURI strips a "data:<type>;base64," prefix, returning the content
// type it named and the bare payload.
func splitDataURI(s string) (contentType, data string) {
	const marker = ";base64,"
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, marker); i >= 0 {
			contentType = s[len("data:"):i]
			if j := strings.Index(contentType, ";"); j >= 0 {
				contentType = contentType[:j]
			}
			data = s[i+len(marker):]
			if contentType == "" {
				contentType = defaultSignatureContentType
			}
			return contentType, data
		}
	}
	return defaultSignatureContentType, s
}
