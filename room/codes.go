// room/codes.go
package room

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/wfunc/drawserver/persistence"
)

// codeAlphabet drops characters that read ambiguously on a shared screen.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength   = 4
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{4}$`)

// GenerateCode draws 4-character codes until one is free in the store.
func GenerateCode(db persistence.Database) (string, error) {
	for attempt := 0; attempt < 64; attempt++ {
		var b strings.Builder
		for i := 0; i < CodeLength; i++ {
			b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
		}
		code := b.String()

		exists, err := db.CodeExists(code)
		if err != nil {
			return "", wrapStore("check room code", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", newGameError(KindRetryable, "could not allocate a unique room code")
}

// NormalizeCode upper-cases a client-supplied code and validates its shape.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	return code, nil
}
