package packet

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// charset is the string encoding used on the wire. UTF-8 unless the server
// speaks a legacy code page.
var charset atomic.Value // encoding.Encoding

func init() {
	charset.Store(encoding.Encoding(unicode.UTF8))
}

// UseCharset selects the wire string encoding by WHATWG name ("utf-8",
// "big5", "shift_jis", ...).
func UseCharset(name string) error {
	if name == "" {
		name = "utf-8"
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return fmt.Errorf("unknown charset %q: %w", name, err)
	}
	charset.Store(enc)
	return nil
}

func currentCharset() encoding.Encoding {
	return charset.Load().(encoding.Encoding)
}

func isUTF8(enc encoding.Encoding) bool {
	return enc == unicode.UTF8
}

// decodeString converts wire bytes to a UTF-8 string.
// Pure ASCII passes through unchanged; only multi-byte sequences are decoded.
func decodeString(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	enc := currentCharset()
	if isUTF8(enc) || allASCII(raw) {
		return string(raw)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw) // fallback to raw bytes
	}
	return string(decoded)
}

func encodeString(s string) []byte {
	enc := currentCharset()
	if isUTF8(enc) || allASCII([]byte(s)) {
		return []byte(s)
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return encoded
}

func allASCII(raw []byte) bool {
	for _, b := range raw {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
