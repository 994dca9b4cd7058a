package domain

import "time"

// Expiry computes a session's renewed expiry from now and the configured
// sliding timeout. Called on creation and on every successful validation, so a
// session's lifetime is a sliding window capped by continuous activity.
func Expiry(now time.Time, timeout time.Duration) time.Time {
	return now.Add(timeout)
}

// TimedOut reports whether the inactivity deadline has passed. lastSeen may be
// nil (session never validated yet), in which case there is no deadline.
// The check is strict: the first request after the deadline fails.
func TimedOut(lastSeen *time.Time, now time.Time, timeout time.Duration) bool {
	if lastSeen == nil {
		return false
	}
	return now.After(lastSeen.Add(timeout))
}
