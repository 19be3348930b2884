package middleware

import (
	"net/http"

	"github.com/marathon-tools/mongodb-configurator/configurator/rsctx"

	"github.com/gorilla/handlers"
	log "github.com/sirupsen/logrus"
)

// LogRequest is a middleware which logs HTTP requests in the
// Apache Common Log Format (CLF)
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry, ok := rsctx.GetReqLogger(r.Context()).(*log.Entry)
		if !ok {
			entry = log.NewEntry(log.StandardLogger())
		}
		lw := entry.WriterLevel(log.DebugLevel)
		defer lw.Close()
		handlers.LoggingHandler(lw, next).ServeHTTP(w, r)
	})
}
