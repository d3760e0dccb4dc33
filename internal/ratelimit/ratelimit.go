// Package ratelimit recognises throttling and IP bans in exchange replies
// and records them as metrics.
package ratelimit

import (
	"net/http"
	"strings"

	"apiconform/bizstatus"
	"apiconform/logger"
)

type Signal int

const (
	None Signal = iota
	RateLimited
	IPBanned
)

func (s Signal) String() string {
	switch s {
	case RateLimited:
		return "rate_limited"
	case IPBanned:
		return "ip_banned"
	}
	return "none"
}

// Detect classifies a reply from its HTTP status (0 for websocket frames),
// business code and message text.
func Detect(status int, code int64, msg string) Signal {
	lowerMsg := strings.ToLower(msg)
	if strings.Contains(lowerMsg, "ip") && (strings.Contains(lowerMsg, "ban") || strings.Contains(lowerMsg, "blocked")) {
		return IPBanned
	}
	if status == http.StatusTooManyRequests || code == bizstatus.TooManyRequests {
		return RateLimited
	}
	if strings.Contains(lowerMsg, "too many requests") || strings.Contains(lowerMsg, "rate limit") {
		return RateLimited
	}
	return None
}

// Report logs and counts sig for endpoint. None is ignored.
func Report(entry *logger.Entry, endpoint string, sig Signal) {
	if sig == None {
		return
	}
	fields := logger.Fields{"endpoint": endpoint, "signal": sig.String()}
	switch sig {
	case RateLimited:
		entry.LogMetric("ratelimit", "rate_limit_exceeded", int64(1), "counter", fields)
		entry.WithFields(logger.Fields{"endpoint": endpoint}).Warn("rate limit exceeded")
	case IPBanned:
		entry.LogMetric("ratelimit", "ip_ban", int64(1), "counter", fields)
		entry.WithFields(logger.Fields{"endpoint": endpoint}).Error("ip banned")
	}
}

// ReportFromReply runs Detect and Report in one step and returns the signal.
func ReportFromReply(entry *logger.Entry, endpoint string, status int, code int64, msg string) Signal {
	sig := Detect(status, code, msg)
	Report(entry, endpoint, sig)
	return sig
}
