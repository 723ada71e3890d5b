package app

import (
	"fmt"
	"time"
)

// Severity classifies a notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	// SeverityError notices are blocking: a front end must show them and
	// wait for acknowledgement.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a user-facing message produced by the session.
type Notice struct {
	Severity Severity
	Title    string
	Message  string
	Time     time.Time
}

// Blocking reports whether the notice needs acknowledgement.
func (n *Notice) Blocking() bool {
	return n.Severity == SeverityError
}

func (n *Notice) String() string {
	return fmt.Sprintf("[%s] %s: %s", n.Severity, n.Title, n.Message)
}

func (s *Session) notify(sev Severity, title, msg string) {
	n := &Notice{Severity: sev, Title: title, Message: msg, Time: time.Now()}
	ev := s.logger.Info()
	switch sev {
	case SeverityWarning:
		ev = s.logger.Warn()
	case SeverityError:
		ev = s.logger.Error()
	}
	ev.Str("title", title).Msg(msg)
	s.Notices.Append(n)
}

// Acknowledge removes n from the pending notices.
func (s *Session) Acknowledge(n *Notice) {
	s.Notices.Remove(n)
}
