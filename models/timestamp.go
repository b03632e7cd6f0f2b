package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayout is Python's datetime.isoformat() without a zone. Those values
// were always written from utcnow().
const naiveLayout = "2006-01-02T15:04:05.999999999"

// isoTime decodes RFC 3339 as well as zone-less isoformat timestamps.
type isoTime struct {
	t   time.Time
	set bool
}

func (it *isoTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		it.t, it.set = t, true
		return nil
	}
	t, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	it.t, it.set = t, true
	return nil
}

func (it isoTime) assign(dst *time.Time) {
	if it.set {
		*dst = it.t
	}
}

func (it isoTime) assignPtr(dst **time.Time) {
	if it.set {
		t := it.t
		*dst = &t
	}
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	aux := struct {
		*plain
		CreatedAt isoTime `json:"created_at"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	aux.CreatedAt.assign(&u.CreatedAt)
	return nil
}

func (r *StudentRecord) UnmarshalJSON(b []byte) error {
	type plain StudentRecord
	aux := struct {
		*plain
		CreatedAt isoTime `json:"created_at"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	aux.CreatedAt.assign(&r.CreatedAt)
	return nil
}

func (p *Proof) UnmarshalJSON(b []byte) error {
	type plain Proof
	aux := struct {
		*plain
		Timestamp isoTime `json:"timestamp"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	aux.Timestamp.assign(&p.Timestamp)
	return nil
}

func (c *Certificate) UnmarshalJSON(b []byte) error {
	type plain Certificate
	aux := struct {
		*plain
		GeneratedAt isoTime `json:"generated_at"`
		EmailedAt   isoTime `json:"emailed_at"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	aux.GeneratedAt.assign(&c.GeneratedAt)
	aux.EmailedAt.assignPtr(&c.EmailedAt)
	return nil
}

func (t *Template) UnmarshalJSON(b []byte) error {
	type plain Template
	aux := struct {
		*plain
		UploadedAt isoTime `json:"uploaded_at"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	aux.UploadedAt.assign(&t.UploadedAt)
	return nil
}

// Older files keep the issue time under "timestamp".
func (v *VerificationCode) UnmarshalJSON(b []byte) error {
	type plain VerificationCode
	aux := struct {
		*plain
		IssuedAt    isoTime `json:"issued_at"`
		Timestamp   isoTime `json:"timestamp"`
		ConfirmedAt isoTime `json:"confirmed_at"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	aux.Timestamp.assign(&v.IssuedAt)
	aux.IssuedAt.assign(&v.IssuedAt)
	aux.ConfirmedAt.assignPtr(&v.ConfirmedAt)
	return nil
}
