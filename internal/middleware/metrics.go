package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordHTTPRequest(route, method string, status int, d time.Duration)
}

// unmatchedRoute labels requests that matched no route, keeping arbitrary
// paths out of metric labels.
const unmatchedRoute = "unmatched"

// Metrics reports every request to rec, labelled by the matched route
// pattern. skip lists paths that are not recorded, such as the metrics
// endpoint itself.
func Metrics(rec RequestRecorder, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok || rec == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		rec.RecordHTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
