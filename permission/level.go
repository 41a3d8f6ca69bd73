package permission

import (
	"errors"
	"strings"
)

// Level is an ordinal privilege tier. A lower value is more privileged:
// Root outranks Admin, which outranks User.
type Level uint8

const (
	Root Level = iota
	Admin
	User

	levelCount
)

var levelNames = [levelCount]string{
	Root:  "ROOT",
	Admin: "ADMIN",
	User:  "USER",
}

// ErrUnknownLevel is returned by [ParseLevel] for names outside the enumeration.
var ErrUnknownLevel = errors.New("unknown permission level")

// Valid reports whether l is one of the declared levels.
func (l Level) Valid() bool {
	return l < levelCount
}

// Satisfies reports whether a holder of level l may run an operation that
// requires level required. The comparison is l <= required; an invalid level
// on either side never satisfies.
func (l Level) Satisfies(required Level) bool {
	if !l.Valid() || !required.Valid() {
		return false
	}
	return l <= required
}

func (l Level) String() string {
	if !l.Valid() {
		return "INVALID"
	}
	return levelNames[l]
}

// ParseLevel accepts the canonical names case-insensitively.
func ParseLevel(name string) (Level, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, ErrUnknownLevel
}

// Levels returns every declared level, most privileged first.
func Levels() []Level {
	out := make([]Level, 0, levelCount)
	for l := Root; l < levelCount; l++ {
		out = append(out, l)
	}
	return out
}
