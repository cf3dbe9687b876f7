package handler

import (
	"github.com/reglet-dev/reglet-abi/log"
)

// Middleware wraps a BytesHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	sizeLimit := func(next handler.BytesHandler) handler.BytesHandler {
//	    return func(req []byte) ([]byte, error) {
//	        if len(req) == 0 {
//	            return nil, errEmpty
//	        }
//	        return next(req)
//	    }
//	}
type Middleware func(next BytesHandler) BytesHandler

// LoggingMiddleware logs each invocation with its request and response sizes.
func LoggingMiddleware(l *log.Logger) Middleware {
	return func(next BytesHandler) BytesHandler {
		return func(req []byte) ([]byte, error) {
			l.Logf("invoking handler: %d request bytes", len(req))
			resp, err := next(req)
			if err != nil {
				l.Logf("handler failed: %v", err)
			} else {
				l.Logf("handler completed: %d response bytes", len(resp))
			}
			return resp, err
		}
	}
}
