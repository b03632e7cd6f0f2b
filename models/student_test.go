package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowData_MarshalKeepsOrder(t *testing.T) {
	d := NewRowData("name", "Bob", "email", "bob@x.com", "age", "21")

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Bob","email":"bob@x.com","age":"21"}`, string(b))
}

func TestRowData_SetReplaceKeepsPosition(t *testing.T) {
	d := NewRowData("a", "1", "b", "2")
	d.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, d.Keys())
	v, _ := d.Get("a")
	assert.Equal(t, "3", v)
}

func TestRowData_UnmarshalLegacyValues(t *testing.T) {
	var d RowData
	err := json.Unmarshal([]byte(`{"z":"last","id":12,"score":9.5,"active":true,"note":null}`), &d)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "id", "score", "active", "note"}, d.Keys())
	assert.Equal(t, map[string]string{"z": "last", "id": "12", "score": "9.5", "active": "true", "note": ""}, d.Map())
}

func TestRowData_UnmarshalRejectsArray(t *testing.T) {
	var d RowData
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &d))
}

func TestRowData_ValueScan(t *testing.T) {
	d := NewRowData("name", "Zoë", "email", "z@x.com")

	v, err := d.Value()
	require.NoError(t, err)

	var back RowData
	require.NoError(t, back.Scan(v))
	assert.Equal(t, d.Keys(), back.Keys())
	assert.Equal(t, d.Map(), back.Map())

	require.NoError(t, back.Scan([]byte(`{"k":"v"}`)))
	assert.Equal(t, 1, back.Len())

	assert.Error(t, back.Scan(42))
}

func TestRowData_CloneIsIndependent(t *testing.T) {
	d := NewRowData("a", "1")
	c := d.Clone()
	c.Set("a", "2")
	c.Set("b", "3")

	v, _ := d.Get("a")
	assert.Equal(t, "1", v)
	assert.Equal(t, 1, d.Len())
}

func TestStudentRecord_JSON(t *testing.T) {
	rec := StudentRecord{ID: 3, Data: NewRowData("name", "Bob"), UploadedBy: "uni@st.niituniversity.in"}

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var back StudentRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, 3, back.ID)
	assert.Equal(t, "uni@st.niituniversity.in", back.UploadedBy)
	assert.Equal(t, rec.Data.Map(), back.Data.Map())
}
