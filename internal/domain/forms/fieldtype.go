package forms

import (
	"github.com/formfhir/formfhir/internal/platform/fhir"
	"github.com/formfhir/formfhir/pkg/fhirmodels"
)

// ItemType maps a field kind to its FHIR item type. Unknown kinds map to string.
func ItemType(field FormField) string {
	switch field.Kind {
	case KindInput, KindServiceGroup:
		return fhirmodels.ItemTypeString
	case KindTextarea:
		return fhirmodels.ItemTypeText
	case KindNumber:
		return fhirmodels.ItemTypeDecimal
	case KindDropdown, KindRadio, KindCheckbox:
		return fhirmodels.ItemTypeChoice
	case KindBoolean:
		return fhirmodels.ItemTypeBoolean
	case KindDate:
		return fhirmodels.ItemTypeDate
	case KindSignature:
		return fhirmodels.ItemTypeAttachment
	case KindGroup:
		return fhirmodels.ItemTypeGroup
	default:
		return fhirmodels.ItemTypeString
	}
}

// KindFromItem recovers the field kind of a questionnaire item. The field-type
// extension is authoritative when it names a known kind. Otherwise the kind is
// inferred from the FHIR type, which cannot tell radio from dropdown.
func KindFromItem(item fhir.QuestionnaireItem) FieldKind {
	if ext := findExtension(item.Extension, ExtFieldType); ext != nil {
		if k := FieldKind(ext.ValueCode); IsKnownKind(k) {
			return k
		}
	}
	return inferKind(item.Type, item.Repeats)
}

// HasTypeTag reports whether the item carries a usable field-type extension.
func HasTypeTag(item fhir.QuestionnaireItem) bool {
	ext := findExtension(item.Extension, ExtFieldType)
	return ext != nil && IsKnownKind(FieldKind(ext.ValueCode))
}

func inferKind(itemType string, repeats bool) FieldKind {
	switch itemType {
	case fhirmodels.ItemTypeChoice, fhirmodels.ItemTypeOpenChoice:
		if repeats {
			return KindCheckbox
		}
		return KindDropdown
	case fhirmodels.ItemTypeText:
		return KindTextarea
	case fhirmodels.ItemTypeDecimal, fhirmodels.ItemTypeInteger:
		return KindNumber
	case fhirmodels.ItemTypeBoolean:
		return KindBoolean
	case fhirmodels.ItemTypeDate, fhirmodels.ItemTypeDateTime:
		return KindDate
	case fhirmodels.ItemTypeAttachment:
		return KindSignature
	case fhirmodels.ItemTypeGroup:
		return KindGroup
	default:
		return KindInput
	}
}
