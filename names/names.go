// Package names implements the export-name grammars the chain recognizes on
// smart contract modules.
//
// An init name has the form "init_<contract>" and contains no dot. A receive
// name has the form "<contract>.<entrypoint>", where the entrypoint part may
// be empty (the fallback entrypoint). The two grammars are mutually
// exclusive: a string matches at most one of them.
package names

import (
	"errors"
	"strings"
)

// MaxLength is the maximum byte length of an init or receive name.
const MaxLength = 100

const initPrefix = "init_"

// Grammar errors returned by ParseInit and ParseReceive.
var (
	ErrNotInitName    = errors.New("not a valid init name")
	ErrNotReceiveName = errors.New("not a valid receive name")
)

// InitName is a validated init export name ("init_<contract>").
type InitName struct {
	name string
}

// ReceiveName is a validated receive export name ("<contract>.<entrypoint>").
type ReceiveName struct {
	name string
	dot  int
}

// ParseInit parses an init export name. The name must carry the "init_"
// prefix, contain no dot, be at most MaxLength bytes, and consist of ASCII
// alphanumeric or punctuation characters.
func ParseInit(s string) (InitName, error) {
	if !strings.HasPrefix(s, initPrefix) ||
		strings.ContainsRune(s, '.') ||
		len(s) > MaxLength ||
		!isValidAlphabet(s) {
		return InitName{}, ErrNotInitName
	}
	return InitName{name: s}, nil
}

// ParseReceive parses a receive export name. The name must contain a dot, be
// at most MaxLength bytes, and consist of ASCII alphanumeric or punctuation
// characters. The entrypoint part may be empty.
func ParseReceive(s string) (ReceiveName, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 || len(s) > MaxLength || !isValidAlphabet(s) {
		return ReceiveName{}, ErrNotReceiveName
	}
	return ReceiveName{name: s, dot: dot}, nil
}

// String returns the full export name.
func (n InitName) String() string { return n.name }

// Contract returns the contract name, without the "init_" prefix.
func (n InitName) Contract() string { return n.name[len(initPrefix):] }

// String returns the full export name.
func (n ReceiveName) String() string { return n.name }

// Contract returns the contract part, before the first dot.
func (n ReceiveName) Contract() string { return n.name[:n.dot] }

// Entrypoint returns the entrypoint part, after the first dot. It is empty
// for the fallback entrypoint.
func (n ReceiveName) Entrypoint() string { return n.name[n.dot+1:] }

// IsFallback reports whether the receive name names the fallback entrypoint.
func (n ReceiveName) IsFallback() bool { return n.dot == len(n.name)-1 }

// isValidAlphabet reports whether every byte is ASCII alphanumeric or ASCII
// punctuation, i.e. a graphic ASCII character other than space.
func isValidAlphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '!' || s[i] > '~' {
			return false
		}
	}
	return true
}
