package session

import "time"

// Session binds a time-bounded authorization to one user. ID is the store
// key; clients never see it directly, only inside a signed session key.
type Session struct {
	ID         string
	User       string
	Registered time.Time
	Until      time.Time
}

// New returns a session for user registered at now and valid for lifetime.
func New(id, user string, now time.Time, lifetime time.Duration) *Session {
	return &Session{
		ID:         id,
		User:       user,
		Registered: now,
		Until:      now.Add(lifetime),
	}
}

// ValidAt reports whether the session is still usable at now. Validity ends
// exactly at Until.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.Until)
}

// Lifetime returns Until - Registered.
func (s *Session) Lifetime() time.Duration {
	return s.Until.Sub(s.Registered)
}
