package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders every handler error as {"error", "kind"} JSON.
// Internal errors are logged and reported with a generic message.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		kind := KindInternal
		message := "internal error"

		var appErr *Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			kind = appErr.Kind
			status = HTTPStatus(kind)
			if kind != KindInternal {
				message = appErr.Message
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			kind = kindForStatus(status)
			message = fmt.Sprint(httpErr.Message)
		}

		if kind == KindInternal {
			log.WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).WithError(err).Error("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, echo.Map{"error": message, "kind": kind})
		}
		if werr != nil {
			log.WithError(werr).Warn("failed to write error response")
		}
	}
}
