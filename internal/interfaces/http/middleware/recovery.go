package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dreschagin/ddc-kiosk/internal/gateway/httpx"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// Recovery перехватывает panic в handler'ах и отвечает 500
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// http.ErrAbortHandler: штатный способ прервать ответ (reverse proxy)
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("Panic recovered", fmt.Errorf("%v", rec),
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", httpx.RequestID(r),
					"stack", string(debug.Stack()),
				)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
