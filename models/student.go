package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StudentRecord is one roster row owned by the university that uploaded it.
type StudentRecord struct {
	ID         int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Data       RowData   `gorm:"type:text;not null" json:"data"`
	UploadedBy string    `gorm:"size:150;index" json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StudentRecord) TableName() string {
	return "student_records"
}

// RowData is an ordered string mapping. Keys keep the column order of the CSV
// they came from, both in memory and when serialized.
type RowData struct {
	keys   []string
	values map[string]string
}

// NewRowData builds a RowData from alternating key/value pairs.
func NewRowData(pairs ...string) RowData {
	var d RowData
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i], pairs[i+1])
	}
	return d
}

// Set adds or replaces a value. Replacing keeps the original position.
func (d *RowData) Set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

func (d RowData) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d RowData) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d RowData) Len() int {
	return len(d.keys)
}

// Map returns an unordered copy.
func (d RowData) Map() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Clone returns a copy that shares no state with d.
func (d RowData) Clone() RowData {
	var c RowData
	for _, k := range d.keys {
		c.Set(k, d.values[k])
	}
	return c
}

func (d RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the document. Non-string scalars from
// older data files are converted to their textual form, null becomes "".
func (d *RowData) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = RowData{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row data: expected object, got %v", tok)
	}

	var out RowData
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row data: unexpected key %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		switch v := raw.(type) {
		case nil:
			out.Set(key, "")
		case string:
			out.Set(key, v)
		case json.Number:
			out.Set(key, v.String())
		case bool:
			out.Set(key, fmt.Sprintf("%t", v))
		default:
			nested, err := json.Marshal(v)
			if err != nil {
				return err
			}
			out.Set(key, string(nested))
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// Value stores the data as ordered JSON text; jsonb would reorder the keys.
func (d RowData) Value() (driver.Value, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *RowData) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = RowData{}
		return nil
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("row data: cannot scan %T", src)
	}
}
