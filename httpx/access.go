package httpx

import (
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/joehsn/formify/log"
	"github.com/joehsn/formify/metrics"
)

// AccessLog writes one line per request and records its latency.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.ObserveRequest(r.Method, m.Code, m.Duration)
		log.WithFields(log.Fields{
			"bytes":  m.Written,
			"remote": r.RemoteAddr,
		}).Infof("%s %s %d - %s", r.Method, r.URL.RequestURI(), m.Code, m.Duration)
	})
}
