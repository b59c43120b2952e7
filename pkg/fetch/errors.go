package fetch

import "net/http"

// ErrorClass classifies a failed page fetch from the HTTP status the
// fetcher already holds, instead of substring-matching stringified
// errors. The driver only branches on EndOfData; the rest of the classes
// exist for logs and metrics.
type ErrorClass string

const (
	// ClassNone means the fetch succeeded.
	ClassNone ErrorClass = ""

	// ClassNotFound covers 404/410: the upstream signals end of resource.
	// Several CV endpoints answer the page past the last one this way, so
	// the driver reclassifies it as normal exhaustion, not a failure.
	ClassNotFound ErrorClass = "not_found"

	// ClassClient covers the remaining 4xx errors.
	ClassClient ErrorClass = "client"

	// ClassServer covers 5xx errors.
	ClassServer ErrorClass = "server"

	// ClassNetwork covers transport failures: timeouts, connection
	// errors, and malformed response bodies.
	ClassNetwork ErrorClass = "network"
)

// EndOfData reports whether the class signals normal exhaustion of the
// paginated resource rather than a real failure.
func (c ErrorClass) EndOfData() bool {
	return c == ClassNotFound
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return ClassNotFound
	case code >= 400 && code < 500:
		return ClassClient
	case code >= 500:
		return ClassServer
	default:
		return ClassNone
	}
}
