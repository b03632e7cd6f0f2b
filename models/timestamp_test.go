package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRecord_NaiveTimestampIsUTC(t *testing.T) {
	var rec StudentRecord
	err := json.Unmarshal([]byte(`{"id":3,"data":{"email":"a@x.com"},"uploaded_by":"u","created_at":"2025-01-02T03:04:05.123456"}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.ID)
	assert.Equal(t, "u", rec.UploadedBy)
	assert.True(t, rec.CreatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)))
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
}

func TestTimestamps_AcceptBothLayouts(t *testing.T) {
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var p Proof
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":1,"hash":"h","timestamp":"2024-06-01T12:00:00"}`), &p))
	assert.True(t, p.Timestamp.Equal(want))
	assert.Equal(t, "h", p.Hash)

	var c Certificate
	require.NoError(t, json.Unmarshal([]byte(`{"cert_id":2,"generated_at":"2024-06-01T14:00:00+02:00","emailed_at":"2024-06-01T12:00:00"}`), &c))
	assert.True(t, c.GeneratedAt.Equal(want))
	require.NotNil(t, c.EmailedAt)
	assert.True(t, c.EmailedAt.Equal(want))

	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"email":"e@x.com","created_at":"2024-06-01T12:00:00.000000"}`), &u))
	assert.True(t, u.CreatedAt.Equal(want))

	var tpl Template
	require.NoError(t, json.Unmarshal([]byte(`{"uploaded_at":"2024-06-01T12:00:00Z"}`), &tpl))
	assert.True(t, tpl.UploadedAt.Equal(want))
}

func TestVerificationCode_LegacyTimestampKey(t *testing.T) {
	var v VerificationCode
	require.NoError(t, json.Unmarshal([]byte(`{"code":"123456","timestamp":"2024-06-01T12:00:00.5"}`), &v))
	assert.Equal(t, "123456", v.Code)
	assert.True(t, v.IssuedAt.Equal(time.Date(2024, 6, 1, 12, 0, 0, 5e8, time.UTC)))
	assert.Nil(t, v.ConfirmedAt)
}

func TestTimestamps_MissingAndNullStayZero(t *testing.T) {
	var c Certificate
	require.NoError(t, json.Unmarshal([]byte(`{"cert_id":1,"emailed_at":null}`), &c))
	assert.True(t, c.GeneratedAt.IsZero())
	assert.Nil(t, c.EmailedAt)
}

func TestTimestamps_RejectGarbage(t *testing.T) {
	var rec StudentRecord
	assert.Error(t, json.Unmarshal([]byte(`{"created_at":"yesterday"}`), &rec))
}
