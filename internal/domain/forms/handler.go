package forms

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/formfhir/formfhir/internal/platform/fhir"
)

// Handler serves the transcoding operations over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the operations on the /fhir group.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.POST("/Questionnaire/$from-form", h.FromForm)
	fhirGroup.POST("/Questionnaire/$to-form", h.ToForm)
	fhirGroup.POST("/QuestionnaireResponse/$from-submission", h.FromSubmission)
	fhirGroup.POST("/QuestionnaireResponse/$to-submission", h.ToSubmission)
}

// SubmissionRequest is the body of $from-submission.
type SubmissionRequest struct {
	Submission *FormSubmission `json:"submission" validate:"required"`
	Schema     []FormField     `json:"schema,omitempty" validate:"dive"`
}

// ResponseRequest is the body of $to-submission.
type ResponseRequest struct {
	Resource json.RawMessage `json:"resource"`
	Schema   []FormField     `json:"schema,omitempty" validate:"dive"`
}

func (h *Handler) FromForm(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	var form Form
	if err := json.Unmarshal(body, &form); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.StructureOutcome("invalid JSON: "+err.Error()))
	}
	if err := c.Validate(&form); err != nil {
		return c.JSON(http.StatusBadRequest, validationOutcome(err))
	}
	q, err := h.svc.EncodeForm(c.Request().Context(), &form)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) ToForm(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	form, err := h.svc.DecodeQuestionnaire(c.Request().Context(), body)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) FromSubmission(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	var req SubmissionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.StructureOutcome("invalid JSON: "+err.Error()))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validationOutcome(err))
	}
	qr, err := h.svc.EncodeSubmission(c.Request().Context(), req.Submission, req.Schema)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, qr)
}

func (h *Handler) ToSubmission(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	var req ResponseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.StructureOutcome("invalid JSON: "+err.Error()))
	}
	if len(req.Resource) == 0 {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeRequired, "resource: is required"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validationOutcome(err))
	}
	sub, err := h.svc.DecodeResponse(c.Request().Context(), req.Resource, req.Schema)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

var (
	errEmptyBody = errors.New("request body is empty")
	errReadBody  = errors.New("failed to read request body")
)

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReadBody, err)
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

func (h *Handler) errorResponse(c echo.Context, err error) error {
	var (
		rte *ResourceTypeError
		he  *echo.HTTPError
	)
	switch {
	case errors.As(err, &rte):
		return c.JSON(http.StatusUnprocessableEntity, fhir.InvalidResourceOutcome(rte.Expected, rte.Got))
	case errors.Is(err, ErrMalformedDocument):
		return c.JSON(http.StatusBadRequest, fhir.StructureOutcome(err.Error()))
	case errors.Is(err, ErrDuplicateFieldID):
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeDuplicate, err.Error()))
	case errors.Is(err, errEmptyBody):
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	case errors.As(err, &he):
		if he.Code == http.StatusRequestEntityTooLarge {
			return c.JSON(he.Code, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTooCostly, fmt.Sprint(he.Message)))
		}
		return c.JSON(he.Code, fhir.ErrorOutcome(fmt.Sprint(he.Message)))
	case errors.Is(err, errReadBody):
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
	}
}

// validationOutcome reports one issue per failed constraint, with the JSON
// path of the offending value as the issue expression.
func validationOutcome(err error) *fhir.OperationOutcome {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fhir.ValidationOutcome("body", err.Error())
	}
	issues := make([]fhir.OperationOutcomeIssue, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		code := fhir.IssueTypeInvalid
		if fe.Tag() == "required" {
			code = fhir.IssueTypeRequired
		}
		issues = append(issues, fhir.OperationOutcomeIssue{
			Severity:    fhir.IssueSeverityError,
			Code:        code,
			Diagnostics: fmt.Sprintf("%s failed the %q rule", path, fe.Tag()),
			Expression:  []string{path},
		})
	}
	return fhir.MultipleIssuesOutcome(issues)
}
