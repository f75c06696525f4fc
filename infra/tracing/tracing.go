package tracing

import (
	"fixflow/misc"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
)

// Bootstrap install the jaeger tracer as the opentracing global tracer.
// Configuration is taken from the standard JAEGER_* environment variables,
// sampling and reporting stay disabled when they are absent.
func Bootstrap() io.Closer {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		logrus.Warnf("failed to parse jaeger config from env: %v", err)
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = misc.GetServiceName()
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Metrics(metrics.NullFactory))
	if err != nil {
		logrus.Warnf("failed to build jaeger tracer: %v", err)
		return nil
	}
	opentracing.SetGlobalTracer(tracer)
	return closer
}

// TracingIngress opens a server span per request, named after the route
// template so "/v1/tickets/:ticketNumber" stays one operation regardless of
// the ticket number in the URL.
func TracingIngress() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := opentracing.GlobalTracer()
		parentCtx, _ := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		span := tracer.StartSpan(c.Request.Method+" "+route, ext.RPCServerOption(parentCtx))
		defer span.Finish()
		ext.HTTPUrl.Set(span, c.Request.RequestURI)

		c.Request = c.Request.WithContext(opentracing.ContextWithSpan(c.Request.Context(), span))
		c.Next()

		ext.HTTPStatusCode.Set(span, uint16(c.Writer.Status()))
	}
}
