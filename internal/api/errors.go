package api

// errors.go maps pipeline errors to HTTP responses in one place. The
// technical error is logged with the request id; clients get a short message
// and a stable code.

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/statementlens/internal/detect"
	"github.com/insightdelivered/statementlens/internal/jobs"
	"github.com/insightdelivered/statementlens/internal/logging"
	"github.com/insightdelivered/statementlens/internal/parser"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	JobID     string `json:"jobId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

var (
	errNoFile = errors.New("no file uploaded, use form field 'file'")
	errNotPDF = errors.New("only PDF files are supported")
)

// classifyError returns the status code and machine-readable code for err.
// Version conflicts are checked before unexpected errors because
// *jobs.UnexpectedError unwraps to its cause.
func classifyError(err error) (int, string) {
	var (
		npe *parser.NoParserError
		de  *detect.DetectionError
		ere *jobs.EmptyResultError
		fe  *fiber.Error
	)
	switch {
	case errors.Is(err, errNoFile):
		return fiber.StatusBadRequest, "NO_FILE"
	case errors.Is(err, errNotPDF):
		return fiber.StatusBadRequest, "NOT_PDF"
	case errors.As(err, &npe):
		return fiber.StatusBadRequest, "NO_PARSER"
	case errors.Is(err, jobs.ErrMissingInput):
		return fiber.StatusBadRequest, "MISSING_INPUT"
	case errors.Is(err, jobs.ErrNotFound):
		return fiber.StatusNotFound, "JOB_NOT_FOUND"
	case errors.Is(err, jobs.ErrNoPreview):
		return fiber.StatusNotFound, "NO_PREVIEW"
	case errors.Is(err, jobs.ErrNotExportable):
		return fiber.StatusConflict, "NOT_EXPORTABLE"
	case errors.Is(err, jobs.ErrVersionConflict):
		return fiber.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, jobs.ErrTerminal), errors.Is(err, jobs.ErrInvalidTransition):
		return fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.As(err, &ere):
		return fiber.StatusUnprocessableEntity, "NO_MOVEMENTS"
	case errors.As(err, &de):
		return fiber.StatusUnprocessableEntity, "FORMAT_NOT_DETECTED"
	case errors.Is(err, ErrTooManyUploads):
		return fiber.StatusTooManyRequests, "TOO_MANY_UPLOADS"
	case errors.As(err, &fe):
		return fe.Code, "HTTP_ERROR"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// respondError logs err and writes the mapped JSON error response. jobID is
// included when the failing request created or addressed a job.
func respondError(c *fiber.Ctx, err error, jobID string) error {
	status, code := classifyError(err)
	ctx := c.UserContext()

	log := logging.FromContext(ctx).With(
		"path", c.Path(),
		"method", c.Method(),
		"status", status,
		"code", code,
		"error", err.Error(),
	)
	if jobID != "" {
		log = log.With("job_id", jobID)
	}
	if status >= fiber.StatusInternalServerError {
		log.Error("request error")
	} else {
		log.Warn("request error")
	}

	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		msg = "internal server error"
		var ue *jobs.UnexpectedError
		if errors.As(err, &ue) {
			msg = ue.Stage + " failed"
		}
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:     msg,
		Code:      code,
		JobID:     jobID,
		RequestID: logging.RequestID(ctx),
	})
}

// errorHandler is the fiber error handler for errors no handler mapped,
// such as unknown routes, oversized bodies and recovered panics.
func errorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err, "")
}
