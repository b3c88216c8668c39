package client

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sonalabs/sona-go/api"
)

// Timing records per-stage durations of one call, in milliseconds, plus the
// processing times the server reports in its response headers. Diagnostic
// only; nothing branches on these values.
type Timing struct {
	SessionMs float64
	SealMs    float64
	PostMs    float64
	ParseMs   float64

	ServerContextMs float64
	ServerEnclaveMs float64
	ServerTotalMs   float64
}

func (t *Timing) readServerHeaders(h http.Header) {
	t.ServerContextMs = parseMsHeader(h, api.ServerContextMsHeader)
	t.ServerEnclaveMs = parseMsHeader(h, api.ServerEnclaveMsHeader)
	t.ServerTotalMs = parseMsHeader(h, api.ServerTotalMsHeader)
}

// parseMsHeader reads a floating-point millisecond header; absent or
// malformed values count as 0.
func parseMsHeader(h http.Header, name string) float64 {
	v := h.Get(name)
	if v == "" {
		return 0
	}
	ms, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return ms
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
