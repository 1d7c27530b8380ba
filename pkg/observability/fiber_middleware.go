package observability

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// FiberOptions tunes FiberMiddleware.
type FiberOptions struct {
	// SkipPaths are served without a span or metrics, e.g. health checks.
	SkipPaths []string
	// LocalAttrs maps span attribute names to fiber Locals keys. Values set by
	// later handlers (the facility scope, the request id) end up on the span.
	LocalAttrs map[string]string
}

// FiberMiddleware traces every request and records request count and duration
// per route.
func FiberMiddleware(opts FiberOptions) fiber.Handler {
	tracer := otel.Tracer(tracerName)
	meter := otel.Meter(tracerName)

	requestCounter, _ := meter.Int64Counter(
		"carevisit_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	requestDuration, _ := meter.Float64Histogram(
		"carevisit_http_request_duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return func(c fiber.Ctx) error {
		if slices.Contains(opts.SkipPaths, c.Path()) {
			return c.Next()
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Context(), propagation.HeaderCarrier(c.GetReqHeaders()))
		route := c.Route().Path
		ctx, span := tracer.Start(ctx, c.Method()+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.route", route),
				attribute.String("http.url", string(c.Request().URI().FullURI())),
				attribute.String("http.client_ip", c.IP()),
				attribute.String("http.user_agent", c.Get("User-Agent")),
			),
		)
		defer span.End()

		c.SetContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set("X-Trace-Id", sc.TraceID().String())
		}

		start := time.Now()
		err := c.Next()
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		// the matched route is only known after routing
		route = c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			// the error handler writes the status after the chain unwinds
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Float64("http.duration_ms", elapsed),
		)
		for attr, local := range opts.LocalAttrs {
			if v, ok := c.Locals(local).(string); ok && v != "" {
				span.SetAttributes(attribute.String(attr, v))
			}
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		requestCounter.Add(ctx, 1, attrs)
		requestDuration.Record(ctx, elapsed, attrs)

		if status >= 500 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
			if err != nil {
				span.RecordError(err)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
