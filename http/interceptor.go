package http

import (
	"bufio"
	"net"
	"net/http"
)

// settlementInterceptor delays committing a handler's successful response
// until settlement goes through. The first 2xx WriteHeader triggers the
// settle callback; on failure the 402 challenge has already been written
// to the underlying writer, so the handler's own output is discarded.
// Non-success statuses pass through untouched and skip settlement.
type settlementInterceptor struct {
	w         http.ResponseWriter
	settle    func() bool
	onSkip    func(status int)
	committed bool
	hijacked  bool
}

// NewSettlementWriter wraps w so the first 2xx status a handler commits
// runs settle before any byte reaches the client. Router adapters whose
// handlers write through a plain http.ResponseWriter swap this in around
// the downstream handler. When settle returns false it must already have
// written its own response; the handler's output is then discarded.
// onSkip observes non-2xx statuses, which pass through without settling.
func NewSettlementWriter(w http.ResponseWriter, settle func() bool, onSkip func(status int)) http.ResponseWriter {
	return &settlementInterceptor{w: w, settle: settle, onSkip: onSkip}
}

func (s *settlementInterceptor) Header() http.Header {
	return s.w.Header()
}

func (s *settlementInterceptor) WriteHeader(status int) {
	if s.committed || s.hijacked {
		return
	}

	if status < 200 || status >= 300 {
		if s.onSkip != nil {
			s.onSkip(status)
		}
		s.committed = true
		s.w.WriteHeader(status)
		return
	}

	if !s.settle() {
		s.hijacked = true
		return
	}
	s.committed = true
	s.w.WriteHeader(status)
}

func (s *settlementInterceptor) Write(data []byte) (int, error) {
	if s.hijacked {
		// The 402 is already on the wire; swallow the handler's payload
		// but report success so it does not error out mid-write.
		return len(data), nil
	}
	if !s.committed {
		s.WriteHeader(http.StatusOK)
		if s.hijacked {
			return len(data), nil
		}
	}
	return s.w.Write(data)
}

func (s *settlementInterceptor) Flush() {
	if s.hijacked {
		return
	}
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *settlementInterceptor) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := s.w.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (s *settlementInterceptor) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := s.w.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}
