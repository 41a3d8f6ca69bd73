package session

import (
	"encoding/binary"
	"errors"
	"time"
)

const formatVersion byte = 1

// ErrCorrupt is returned by Decode for blobs that do not match the format.
var ErrCorrupt = errors.New("session: corrupt record")

// Encode serializes s as
//
//	version(1) | userLen(1) | user | registered(8, unix nanos BE) | until(8, unix nanos BE)
//
// The ID is not encoded; it is the Redis key.
func Encode(s *Session) ([]byte, error) {
	if len(s.User) == 0 || len(s.User) > 255 {
		return nil, errors.New("session: user name length out of range")
	}

	buf := make([]byte, 0, 2+len(s.User)+16)
	buf = append(buf, formatVersion, byte(len(s.User)))
	buf = append(buf, s.User...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.Registered.UnixNano()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.Until.UnixNano()))
	return buf, nil
}

// Decode parses a blob produced by Encode. The returned session has an empty
// ID.
func Decode(data []byte) (*Session, error) {
	if len(data) < 2 || data[0] != formatVersion {
		return nil, ErrCorrupt
	}
	userLen := int(data[1])
	if userLen == 0 || len(data) != 2+userLen+16 {
		return nil, ErrCorrupt
	}

	rest := data[2+userLen:]
	s := &Session{
		User:       string(data[2 : 2+userLen]),
		Registered: time.Unix(0, int64(binary.BigEndian.Uint64(rest[:8]))),
		Until:      time.Unix(0, int64(binary.BigEndian.Uint64(rest[8:]))),
	}
	if s.Until.Before(s.Registered) {
		return nil, ErrCorrupt
	}
	return s, nil
}
