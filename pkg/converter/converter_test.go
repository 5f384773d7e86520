package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name      string
		values    []interface{}
		threshold float64
		want      model.ColumnType
		ok        bool
	}{
		{"numbers", []interface{}{"1", " 2.5 ", nil, "-3"}, 1, model.TypeNumeric, true},
		{"dates", []interface{}{"2023-01-15", "2023/02/01", nil}, 1, model.TypeDate, true},
		{"year-last dates stay text", []interface{}{"2023-01-15", "01/15/2023"}, 1, model.TypeText, false},
		{"booleans", []interface{}{"yes", "No", "TRUE"}, 1, model.TypeBoolean, true},
		{"zero and one are numeric", []interface{}{"0", "1"}, 1, model.TypeNumeric, true},
		{"mixed stays text", []interface{}{"1", "abc"}, 1, model.TypeText, false},
		{"mixed under lower threshold", []interface{}{"1", "2", "3", "abc"}, 0.75, model.TypeNumeric, true},
		{"entirely missing", []interface{}{nil, nil}, 1, model.TypeText, false},
		{"already numeric", []interface{}{1.5, int64(2)}, 1, model.TypeNumeric, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferColumnType(tt.values, tt.threshold)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferTypesConvertsCells(t *testing.T) {
	ds := model.NewDataset("people", []model.Column{
		{Name: "age", Type: model.TypeText},
		{Name: "joined", Type: model.TypeText},
		{Name: "name", Type: model.TypeText},
	})
	ds.AppendRow(model.Row{"age": "20", "joined": "2023-01-15", "name": "Ann"})
	ds.AppendRow(model.Row{"age": "x", "joined": nil, "name": "Bob"})
	ds.AppendRow(model.Row{"age": "40", "joined": "2023-02-01", "name": "Cy"})

	tc := NewTypeConverterWithConfig(nil, TypeConverterConfig{InferenceThreshold: 0.6})
	out, corrections := tc.InferTypes(ds)

	require.Len(t, corrections, 2)
	assert.Equal(t, "age", corrections[0].Column)
	assert.Equal(t, []int{1}, corrections[0].Nullified)
	assert.Equal(t, []interface{}{"x"}, corrections[0].Originals)

	col, _ := out.Column("age")
	assert.Equal(t, model.TypeNumeric, col.Type)
	assert.Equal(t, 20.0, out.Rows[0]["age"])
	assert.Nil(t, out.Rows[1]["age"])

	col, _ = out.Column("joined")
	assert.Equal(t, model.TypeDate, col.Type)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), out.Rows[0]["joined"])

	col, _ = out.Column("name")
	assert.Equal(t, model.TypeText, col.Type)

	// input untouched
	assert.Equal(t, "20", ds.Rows[0]["age"])
	c, _ := ds.Column("age")
	assert.Equal(t, model.TypeText, c.Type)
}

func TestNullMarkers(t *testing.T) {
	tc := NewTypeConverter(nil)

	for _, marker := range []string{"", "  ", "NA", "N/A", "null", "NULL", "nil", "NaN"} {
		assert.Nil(t, tc.NormalizeRaw(marker), "marker %q", marker)
	}
	assert.Equal(t, "0", tc.NormalizeRaw("0"))
	assert.Equal(t, "none of these", tc.NormalizeRaw("none of these"))
}

func TestCoerce(t *testing.T) {
	v, err := Coerce("3.25", model.TypeNumeric)
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)

	v, err = Coerce("off", model.TypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = Coerce(12.5, model.TypeText)
	require.NoError(t, err)
	assert.Equal(t, "12.5", v)

	v, err = Coerce(nil, model.TypeDate)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Coerce("soon", model.TypeDate)
	assert.Error(t, err)

	_, err = Coerce(true, model.TypeNumeric)
	assert.Error(t, err)
}

func TestColumnTypeFromSQL(t *testing.T) {
	assert.Equal(t, model.TypeNumeric, ColumnTypeFromSQL("numeric(10,2)"))
	assert.Equal(t, model.TypeNumeric, ColumnTypeFromSQL("double precision"))
	assert.Equal(t, model.TypeNumeric, ColumnTypeFromSQL("NUMBER(38,0)"))
	assert.Equal(t, model.TypeDate, ColumnTypeFromSQL("timestamp without time zone"))
	assert.Equal(t, model.TypeDate, ColumnTypeFromSQL("TIMESTAMP_NTZ"))
	assert.Equal(t, model.TypeBoolean, ColumnTypeFromSQL("boolean"))
	assert.Equal(t, model.TypeText, ColumnTypeFromSQL("character varying"))
	assert.Equal(t, model.TypeText, ColumnTypeFromSQL(""))
}

func TestGenerateColumnDefinitions(t *testing.T) {
	ds := model.NewDataset("t", []model.Column{
		{Name: "id", Type: model.TypeNumeric, Nullable: true},
		{Name: "score", Type: model.TypeNumeric, Nullable: true},
		{Name: "seen", Type: model.TypeDate, Nullable: true},
		{Name: "at", Type: model.TypeDate, Nullable: true},
		{Name: "ok", Type: model.TypeBoolean, Nullable: true},
		{Name: "Full Name", Type: model.TypeText, Nullable: true},
	})
	ds.AppendRow(model.Row{
		"id":        1.0,
		"score":     2.5,
		"seen":      time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		"at":        time.Date(2023, 1, 15, 8, 30, 0, 0, time.UTC),
		"ok":        true,
		"Full Name": "x",
	})

	defs, err := NewTypeConverter(nil).GenerateColumnDefinitions(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`"id" BIGINT NULL`,
		`"score" DOUBLE PRECISION NULL`,
		`"seen" DATE NULL`,
		`"at" TIMESTAMP NULL`,
		`"ok" BOOLEAN NULL`,
		`"Full Name" TEXT NULL`,
	}, defs)

	_, err = NewTypeConverter(nil).GenerateColumnDefinitions(model.NewDataset("empty", nil))
	assert.Error(t, err)
}

func TestNormalizeDriverValue(t *testing.T) {
	assert.Equal(t, "abc", NormalizeDriverValue([]byte("abc")))
	assert.Equal(t, 42.0, NormalizeDriverValue(int64(42)))
	assert.Equal(t, `{"a":1}`, NormalizeDriverValue(map[string]interface{}{"a": 1}))
	assert.Nil(t, NormalizeDriverValue(nil))
}
