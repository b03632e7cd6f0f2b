package utils

import (
	"strings"

	"github.com/vnkhanh/e-cert-backend/models"
)

var emailKeywords = []string{"email", "e-mail", "mail", "email_address", "emailaddress"}

// ExtractEmail finds the student's address in a roster row. Columns whose
// header mentions an email keyword win; otherwise any value shaped like an
// address is used. The result is lower-cased, "" when nothing matches.
func ExtractEmail(d models.RowData) string {
	keys := d.Keys()
	for _, k := range keys {
		header := strings.ToLower(strings.TrimSpace(k))
		if !containsAny(header, emailKeywords) {
			continue
		}
		v, _ := d.Get(k)
		v = strings.TrimSpace(v)
		if v != "" && strings.Contains(v, "@") {
			return strings.ToLower(v)
		}
	}

	for _, k := range keys {
		v, _ := d.Get(k)
		v = strings.ToLower(strings.TrimSpace(v))
		at := strings.LastIndex(v, "@")
		if at >= 0 && strings.Contains(v[at+1:], ".") {
			return v
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// EmailDomain returns the lower-cased part after the last "@".
func EmailDomain(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.TrimSpace(email[at+1:])
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
