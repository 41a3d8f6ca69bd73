package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldCredName       protowire.Number = 1
	fieldCredPassword   protowire.Number = 2
	fieldCredPermission protowire.Number = 3
)

// Credentials is the payload of the new_user operation. Permission is a
// level name ("ROOT", "ADMIN", "USER"); empty selects the configured default.
type Credentials struct {
	Name       string
	Password   string
	Permission string
}

// DecodeCredentials parses a new_user payload.
func DecodeCredentials(b []byte) (*Credentials, error) {
	c := &Credentials{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldCredName:
			return consumeString(typ, b, &c.Name)
		case fieldCredPassword:
			return consumeString(typ, b, &c.Password)
		case fieldCredPermission:
			return consumeString(typ, b, &c.Permission)
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// EncodeCredentials serializes c.
func EncodeCredentials(c *Credentials) []byte {
	var b []byte
	b = appendString(b, fieldCredName, c.Name)
	b = appendString(b, fieldCredPassword, c.Password)
	b = appendString(b, fieldCredPermission, c.Permission)
	return b
}
