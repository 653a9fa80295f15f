package devserver

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validator adapts go-playground/validator to echo, reporting field names
// from json tags.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: validate}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Metrics instruments request durations and serves the scrape endpoint on
// /metrics.
func Metrics() echo.MiddlewareFunc {
	httpMetrics := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "request_duration_seconds",
		Help:    "Spend time by processing a route",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	}, []string{"code", "method", "path"})
	if err := prometheus.Register(httpMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			httpMetrics = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			panic(err)
		}
	}
	promHandler := echo.WrapHandler(promhttp.Handler())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().RequestURI == "/metrics" {
				return promHandler(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			httpMetrics.WithLabelValues(status, c.Request().Method, c.Path()).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// LogRequest logs one structured line per request, levelled by status.
func LogRequest(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uri := c.Request().RequestURI
			if uri == "/health" || uri == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			args := []interface{}{
				"status", res.Status,
				"method", c.Request().Method,
				"uri", uri,
				"latency_ms", time.Since(start).Milliseconds(),
				"real_ip", c.RealIP(),
			}
			switch {
			case res.Status >= 500:
				if err != nil {
					args = append(args, "error", err.Error())
				}
				log.Errorw("", args...)
			case res.Status >= 400:
				log.Warnw("", args...)
			default:
				log.Infow("", args...)
			}
			return err
		}
	}
}
