package sessionkey

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/ledgergate/session"
	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest accepted HS256 secret in bytes.
const MinSecretLength = 32

// DefaultIssuer is used when Config.Issuer is empty.
const DefaultIssuer = "ledgergate"

// ErrInvalidKey is returned by Parse for any key that is not a well-formed,
// correctly signed session key from this issuer.
var ErrInvalidKey = errors.New("invalid session key")

// Config configures a [Signer]. KeyID, when set, is written to the token
// header; VerifyKeys holds additional secrets accepted during rotation,
// indexed by kid.
type Config struct {
	Secret     []byte
	Issuer     string
	KeyID      string
	VerifyKeys map[string][]byte
}

// Signer issues and parses session keys. A session key is an HS256 JWT whose
// jti is the session id. Expiry is carried for clients but is not enforced
// here; the stored record is authoritative.
type Signer struct {
	config Config
}

// Claims is the decoded content of a session key.
type Claims struct {
	SessionID string
	User      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewSigner validates cfg.
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("session key secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < MinSecretLength {
			return nil, fmt.Errorf("verify key %q shorter than %d bytes", kid, MinSecretLength)
		}
	}
	return &Signer{config: cfg}, nil
}

// Issue returns the session key for sess.
func (s *Signer) Issue(sess *session.Session) (string, error) {
	if sess.ID == "" || sess.User == "" {
		return "", errors.New("session key requires id and user")
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   sess.User,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(sess.Registered),
		ExpiresAt: jwt.NewNumericDate(sess.Until),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}
	return token.SignedString(s.config.Secret)
}

// Parse verifies key and returns its claims. Time-based claims are not
// validated.
func (s *Signer) Parse(key string) (*Claims, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	parsed := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(key, parsed, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidKey
	}
	if parsed.Issuer != s.config.Issuer || parsed.ID == "" || parsed.Subject == "" {
		return nil, ErrInvalidKey
	}

	out := &Claims{SessionID: parsed.ID, User: parsed.Subject}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time
	}
	return out, nil
}

func (s *Signer) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" || kid == s.config.KeyID {
		return s.config.Secret, nil
	}
	if key, ok := s.config.VerifyKeys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown kid %q", kid)
}
