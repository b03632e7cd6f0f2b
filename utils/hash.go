package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/vnkhanh/e-cert-backend/models"
)

// HashRowData returns the hex SHA-256 of the canonical JSON form of d.
//
// The canonical form matches what the first deployment of this service stored:
// keys sorted, ", " and ": " separators, every rune outside printable ASCII
// escaped as \uXXXX. Changing any of this invalidates existing proofs.
func HashRowData(d models.RowData) string {
	sum := sha256.Sum256([]byte(CanonicalJSON(d)))
	return hex.EncodeToString(sum[:])
}

// CanonicalJSON encodes d with sorted keys.
func CanonicalJSON(d models.RowData) string {
	keys := d.Keys()
	sort.Strings(keys)
	return encodeObject(keys, d)
}

// DisplayJSON encodes d in column order, using the same escaping as CanonicalJSON.
func DisplayJSON(d models.RowData) string {
	return encodeObject(d.Keys(), d)
}

func encodeObject(keys []string, d models.RowData) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := d.Get(k)
		writeString(&b, k)
		b.WriteString(": ")
		writeString(&b, v)
	}
	b.WriteByte('}')
	return b.String()
}

const hexDigits = "0123456789abcdef"

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				b.WriteRune(r)
			case r > 0xffff:
				r1, r2 := utf16.EncodeRune(r)
				writeUnicodeEscape(b, r1)
				writeUnicodeEscape(b, r2)
			default:
				writeUnicodeEscape(b, r)
			}
		}
	}
	b.WriteByte('"')
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[(r>>12)&0xf])
	b.WriteByte(hexDigits[(r>>8)&0xf])
	b.WriteByte(hexDigits[(r>>4)&0xf])
	b.WriteByte(hexDigits[r&0xf])
}
