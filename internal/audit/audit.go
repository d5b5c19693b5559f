package audit

import (
	"log"
	"os"
)

// Sink receives security-relevant events. The rest of the system can swap in
// its own implementation; the default writes to the process log.
type Sink interface {
	AuthFailure(source string, reason string)
	AccessDenied(userID int64, resource string, resourceID int64)
}

type LogSink struct {
	logger *log.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: log.New(os.Stderr, "audit: ", log.LstdFlags)}
}

func (s *LogSink) AuthFailure(source string, reason string) {
	s.logger.Printf("auth failure source=%s reason=%s", source, reason)
}

func (s *LogSink) AccessDenied(userID int64, resource string, resourceID int64) {
	s.logger.Printf("access denied user=%d resource=%s id=%d", userID, resource, resourceID)
}
