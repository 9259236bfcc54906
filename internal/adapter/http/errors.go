package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"microloan-service/internal/adapter/middleware"
	"microloan-service/internal/apperror"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string                `json:"code"`
	Error   string                `json:"error"`
	Details []apperror.FieldError `json:"details,omitempty"`
}

// writeError renders err and logs server-side failures. Internal causes
// never reach the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	ae := apperror.From(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("code", ae.Code),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(ae.Internal),
		)
	}
	return c.JSON(ae.Status, ErrorResponse{Code: ae.Code, Error: ae.Message, Details: ae.Details})
}

// bindError turns an echo bind failure into a 400/413 AppError, naming
// the offending field when the decoder reports one.
func bindError(err error) *apperror.AppError {
	if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		return payloadTooLarge()
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return apperror.Validation(apperror.FieldError{Field: ute.Field, Message: "must be a " + jsonKind(ute.Type.Kind().String())})
	}
	return apperror.Validation(apperror.FieldError{Field: "body", Message: "must be a well-formed JSON object"})
}

func jsonKind(goKind string) string {
	switch goKind {
	case "int", "int32", "int64", "float64", "float32":
		return "number"
	default:
		return goKind
	}
}

func payloadTooLarge() *apperror.AppError {
	return &apperror.AppError{Code: apperror.CodePayloadTooLarge, Message: "request body too large", Status: http.StatusRequestEntityTooLarge}
}

// NewHTTPErrorHandler keeps echo-originated failures (unknown routes,
// wrong methods, body limit, recovered panics) in the same JSON shape.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			err = fromHTTPError(he)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(apperror.From(err).Status)
		} else {
			werr = writeError(c, log, err)
		}
		if werr != nil {
			log.Error("writing error response failed", zap.Error(werr))
		}
	}
}

func fromHTTPError(he *echo.HTTPError) *apperror.AppError {
	switch he.Code {
	case http.StatusNotFound:
		return apperror.NotFound("route not found")
	case http.StatusMethodNotAllowed:
		return &apperror.AppError{Code: apperror.CodeMethodNotAllowed, Message: "method not allowed", Status: http.StatusMethodNotAllowed}
	case http.StatusRequestEntityTooLarge:
		return payloadTooLarge()
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return bindError(he)
	default:
		if he.Code >= http.StatusInternalServerError {
			return apperror.Wrap(apperror.ErrInternal, he)
		}
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		return &apperror.AppError{Code: code, Message: msg, Status: he.Code}
	}
}
