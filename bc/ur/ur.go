// Package ur implements the single-part Uniform Resources (UR)
// encoding specified in [BCR-2020-005].
//
// [BCR-2020-005]: https://github.com/BlockchainCommons/Research/blob/master/papers/bcr-2020-005-ur.md
package ur

import (
	"errors"
	"fmt"
	"strings"

	"seedhammer.com/lastword/bc/bytewords"
)

// Encode a message as a single-part UR of type _type.
func Encode(_type string, message []byte) string {
	return fmt.Sprintf("ur:%s/%s", _type, bytewords.Encode(message))
}

// Decode a single-part UR, returning its type and message. The
// encoding is case insensitive to allow for alphanumeric QR codes.
func Decode(ur string) (string, []byte, error) {
	ur = strings.ToLower(ur)
	const prefix = "ur:"
	if !strings.HasPrefix(ur, prefix) {
		return "", nil, errors.New("ur: missing ur: prefix")
	}
	ur = ur[len(prefix):]
	parts := strings.Split(ur, "/")
	switch len(parts) {
	case 2:
	case 3:
		return "", nil, errors.New("ur: multi-part URs are not supported")
	default:
		return "", nil, errors.New("ur: incomplete UR")
	}
	typ, fragment := parts[0], parts[1]
	if typ == "" {
		return "", nil, errors.New("ur: missing type")
	}
	enc, err := bytewords.Decode(fragment)
	if err != nil {
		return "", nil, fmt.Errorf("ur: invalid fragment: %w", err)
	}
	return typ, enc, nil
}
