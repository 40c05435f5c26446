package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps the official otelgin middleware and adds the
// app's span attributes on top.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if userID := c.GetString("user_id"); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		if brandID := c.Param("brand_id"); brandID != "" {
			span.SetAttributes(attribute.String("brand.id", brandID))
		}
		if campaignID := c.Param("campaign_id"); campaignID != "" {
			span.SetAttributes(attribute.String("campaign.id", campaignID))
		}
		if slug := c.Param("slug"); slug != "" {
			span.SetAttributes(attribute.String("recipe.slug", slug))
		}

		// Surface handler errors on the span.
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
