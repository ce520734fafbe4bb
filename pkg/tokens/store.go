package tokens

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no token row matches the id.
var ErrNotFound = errors.New("token not found")

// Token is an issued API token. The bearer presents "<id>|<secret>"; only the
// sha256 of the secret is stored.
type Token struct {
	ID         int64
	UserID     int64
	SecretHash string // hex sha256
	Abilities  []string
}

// Store looks up issued tokens and their granted abilities.
type Store interface {
	Lookup(ctx context.Context, id int64) (Token, error)
}

// ParseBearer splits an Authorization header into the token id (before the
// '|' separator) and the secret. ok is false for anything that is not a
// well-formed bearer token of that shape.
func ParseBearer(header string) (int64, string, bool) {
	h := strings.TrimSpace(header)
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return 0, "", false
	}
	raw := strings.TrimSpace(h[len("bearer "):])
	idPart, secret, found := strings.Cut(raw, "|")
	if !found || secret == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, secret, true
}

// Matches compares secret against the stored hash in constant time.
func (t Token) Matches(secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(t.SecretHash))) == 1
}

// HashSecret is the canonical storage form of a token secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// memStore serves fixed tokens for dev and tests.
type memStore struct {
	byID map[int64]Token
}

func NewMemoryStore(toks ...Token) Store {
	m := &memStore{byID: map[int64]Token{}}
	for _, t := range toks {
		m.byID[t.ID] = t
	}
	return m
}

func (m *memStore) Lookup(ctx context.Context, id int64) (Token, error) {
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return Token{}, ErrNotFound
}
