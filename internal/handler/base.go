package handler

import (
	"reflect"
	"time"

	"github.com/deppfellow/employee-api/internal/middleware"
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/deppfellow/employee-api/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler carries the shared dependencies every concrete handler embeds.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is an endpoint that receives a bound, validated request.
// Req is normally a pointer so Bind can fill it.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

type HandlerFuncNoContent[Req validation.Validatable] func(c echo.Context, req Req) error

// responder writes a successful result and names the pipeline in logs.
type responder struct {
	operation string
	write     func(c echo.Context, result any) error
}

func jsonResponder(status int) responder {
	return responder{
		operation: "handler",
		write:     func(c echo.Context, result any) error { return c.JSON(status, result) },
	}
}

func noContentResponder(status int) responder {
	return responder{
		operation: "handler_no_content",
		write:     func(c echo.Context, _ any) error { return c.NoContent(status) },
	}
}

// annotate records attributes on txn, which may be nil.
func annotate(txn *newrelic.Transaction, attrs map[string]any) {
	if txn == nil {
		return
	}
	for key, value := range attrs {
		txn.AddAttribute(key, value)
	}
}

// handleRequest is the pipeline every endpoint runs: bind and validate, call
// the endpoint, then write the result. Errors are returned untouched for the
// global error handler.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	req Req,
	endpoint func(c echo.Context, req Req) (any, error),
	out responder,
) error {
	start := time.Now()
	route := c.Path()
	txn := newrelic.FromContext(c.Request().Context())
	annotate(txn, map[string]any{"handler.name": route})

	logger := middleware.GetLogger(c).With().
		Str("operation", out.operation).
		Str("route", route).
		Logger()
	logger.Debug().Msg("handling request")

	err := validation.BindAndValidate(c, req)
	validated := time.Since(start)
	if err != nil {
		logger.Warn().Err(err).Dur("validation_duration", validated).Msg("request validation failed")
		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
		}
		annotate(txn, map[string]any{
			"validation.status":      "failed",
			"validation.duration_ms": validated.Milliseconds(),
		})
		return err
	}

	result, err := endpoint(c, req)
	handled := time.Since(start) - validated

	status := "success"
	if err != nil {
		status = "error"
	}
	annotate(txn, map[string]any{
		"validation.status":      "success",
		"validation.duration_ms": validated.Milliseconds(),
		"handler.status":         status,
		"handler.duration_ms":    handled.Milliseconds(),
		"total.duration_ms":      time.Since(start).Milliseconds(),
	})

	if err != nil {
		logger.Debug().Err(err).Dur("handler_duration", handled).Msg("handler returned error")
		return err
	}

	logger.Debug().
		Dur("handler_duration", handled).
		Dur("validation_duration", validated).
		Msg("request completed")

	return out.write(c, result)
}

// Handle registers a typed endpoint answering JSON with status.
//
//	g.POST("", handler.Handle(h.Handler, h.Create, http.StatusCreated, &EmployeeRequest{}))
func Handle[Req validation.Validatable, Res any](
	h Handler,
	endpoint HandlerFunc[Req, Res],
	status int,
	req Req,
) echo.HandlerFunc {
	out := jsonResponder(status)
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), func(c echo.Context, req Req) (any, error) {
			return endpoint(c, req)
		}, out)
	}
}

// HandleNoContent registers a typed endpoint that answers without a body.
func HandleNoContent[Req validation.Validatable](
	h Handler,
	endpoint HandlerFuncNoContent[Req],
	status int,
	req Req,
) echo.HandlerFunc {
	out := noContentResponder(status)
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), func(c echo.Context, req Req) (any, error) {
			return nil, endpoint(c, req)
		}, out)
	}
}

// newRequest returns a fresh zero payload of template's type so concurrent
// requests never bind into the same value.
func newRequest[Req any](template Req) Req {
	t := reflect.TypeOf(template)
	if t == nil || t.Kind() != reflect.Pointer {
		var zero Req
		return zero
	}
	return reflect.New(t.Elem()).Interface().(Req)
}
