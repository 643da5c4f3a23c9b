package forms

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/formfhir/formfhir/internal/platform/fhir"
	"github.com/formfhir/formfhir/pkg/fhirmodels"
)

// Service exposes the codecs to transports. It holds no state beyond its
// logger and is safe for concurrent use.
type Service struct {
	log zerolog.Logger
}

func NewService(log zerolog.Logger) *Service {
	return &Service{log: log}
}

// EncodeForm converts a form definition into a Questionnaire.
func (s *Service) EncodeForm(ctx context.Context, form *Form) (*fhir.Questionnaire, error) {
	if form == nil {
		return nil, fmt.Errorf("form is required")
	}
	if err := CheckUniqueIDs(form.Schema); err != nil {
		return nil, err
	}
	q := ToQuestionnaire(form)
	s.logger(ctx).Debug().
		Str("form_id", form.ID).
		Int("fields", CountFields(form.Schema)).
		Msg("encoded form")
	return q, nil
}

// DecodeQuestionnaire parses a raw Questionnaire document and converts it
// into a form definition. The resourceType is checked before the document is
// bound, so a wrong resource fails with a *ResourceTypeError even when it
// would not bind.
func (s *Service) DecodeQuestionnaire(ctx context.Context, raw []byte) (*Form, error) {
	if err := s.checkResourceType(ctx, raw, fhirmodels.ResourceTypeQuestionnaire); err != nil {
		return nil, err
	}
	var q fhir.Questionnaire
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	s.noteItems(ctx, q.Item)
	return FromQuestionnaire(&q)
}

// EncodeSubmission converts a submission into a QuestionnaireResponse. An
// empty schema selects the flat, untyped encoding.
func (s *Service) EncodeSubmission(ctx context.Context, sub *FormSubmission, schema []FormField) (*fhir.QuestionnaireResponse, error) {
	if sub == nil {
		return nil, fmt.Errorf("submission is required")
	}
	if len(schema) > 0 {
		if err := CheckUniqueIDs(schema); err != nil {
			return nil, err
		}
	} else {
		s.logger(ctx).Debug().Str("form_id", sub.FormID).Msg("encoding submission without schema")
	}
	return ToQuestionnaireResponse(sub, schema), nil
}

// DecodeResponse parses a raw QuestionnaireResponse document and converts it
// into a submission, matching items against schema when one is given.
func (s *Service) DecodeResponse(ctx context.Context, raw []byte, schema []FormField) (*FormSubmission, error) {
	if err := s.checkResourceType(ctx, raw, fhirmodels.ResourceTypeQuestionnaireResponse); err != nil {
		return nil, err
	}
	var qr fhir.QuestionnaireResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if len(schema) > 0 {
		s.noteResponseItems(ctx, qr.Item, FlattenFields(schema))
	}
	return FromQuestionnaireResponse(&qr, schema)
}

func (s *Service) checkResourceType(ctx context.Context, raw []byte, expected string) error {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if head.ResourceType != expected {
		err := &ResourceTypeError{Expected: expected, Got: head.ResourceType}
		s.logger(ctx).Warn().Err(err).Msg("rejected document")
		return err
	}
	return nil
}

// noteItems logs the best-effort paths taken for a foreign or damaged
// Questionnaire.
func (s *Service) noteItems(ctx context.Context, items []fhir.QuestionnaireItem) {
	log := s.logger(ctx)
	for _, item := range items {
		if !HasTypeTag(item) {
			log.Debug().
				Str("link_id", item.LinkID).
				Str("item_type", item.Type).
				Str("kind", string(KindFromItem(item))).
				Msg("inferred field kind")
		}
		if metaIsMalformed(item.Extension) {
			log.Debug().Str("link_id", item.LinkID).Msg("dropped malformed field metadata")
		}
		s.noteItems(ctx, item.Item)
	}
}

func (s *Service) noteResponseItems(ctx context.Context, items []fhir.QuestionnaireResponseItem, index map[string]FormField) {
	log := s.logger(ctx)
	for _, item := range items {
		if _, ok := index[item.LinkID]; !ok && len(item.Answer) > 0 {
			log.Debug().Str("link_id", item.LinkID).Msg("answer for unknown field decoded by value type")
		}
		s.noteResponseItems(ctx, item.Item, index)
	}
}

// logger prefers the request-scoped logger carried by ctx.
func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}

