package standardizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

func colors() *model.Dataset {
	ds := model.NewDataset("cars", []model.Column{
		{Name: "id", Type: model.TypeNumeric},
		{Name: "color", Type: model.TypeText},
		{Name: "price", Type: model.TypeNumeric},
	})
	for i, c := range []interface{}{"red", "blue", "red", nil, "light blue", "blue"} {
		ds.AppendRow(model.Row{"id": float64(i), "color": c, "price": 10.0})
	}
	return ds
}

func TestLabelEncodingRoundTrip(t *testing.T) {
	ds := colors()

	out, res, err := EncodeCategorical(ds, EncodeLabel, nil, nil)
	require.NoError(t, err)

	enc := res.Encodings["color"]
	require.NotNil(t, enc)
	assert.Equal(t, []string{"red", "blue", "light blue"}, enc.Categories)
	assert.Equal(t, []interface{}{int64(0), int64(1), int64(0), nil, int64(2), int64(1)}, out.ColumnValues("color"))

	col, _ := out.Column("color")
	assert.Equal(t, model.TypeNumeric, col.Type)

	decoded, err := DecodeColumn(out, enc)
	require.NoError(t, err)
	assert.Equal(t, ds.ColumnValues("color"), decoded.ColumnValues("color"))
}

func TestOneHotOneTruePerRow(t *testing.T) {
	ds := colors()

	out, res, err := EncodeCategorical(ds, EncodeOneHot, []string{"color"}, nil)
	require.NoError(t, err)

	indicators := res.Indicators["color"]
	assert.Equal(t, []string{"color_red", "color_blue", "color_light_blue"}, indicators)
	assert.Equal(t, []string{"id", "color_red", "color_blue", "color_light_blue", "price"}, out.ColumnNames())
	assert.False(t, out.HasColumn("color"))

	for i, row := range out.Rows {
		trues := 0
		for _, name := range indicators {
			if row[name] == true {
				trues++
			}
		}
		if ds.Rows[i]["color"] == nil {
			assert.Equal(t, 0, trues, "row %d", i)
		} else {
			assert.Equal(t, 1, trues, "row %d", i)
		}
	}
	assert.Equal(t, true, out.Rows[4]["color_light_blue"])
}

func TestOneHotNameCollisions(t *testing.T) {
	ds := model.NewDataset("t", []model.Column{
		{Name: "k", Type: model.TypeText},
		{Name: "k_a", Type: model.TypeNumeric},
	})
	ds.AppendRow(model.Row{"k": "a", "k_a": 1.0})
	ds.AppendRow(model.Row{"k": "a!", "k_a": 2.0})
	ds.AppendRow(model.Row{"k": "a?", "k_a": 3.0})

	_, res, err := EncodeCategorical(ds, EncodeOneHot, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"k_a_2", "k_a_", "k_a__2"}, res.Indicators["k"])
}

func TestEncodingWithStoredCategories(t *testing.T) {
	ds := colors()
	known := map[string]*LabelEncoding{"color": NewLabelEncoding("color", []string{"blue", "red"})}

	out, res, err := EncodeCategorical(ds, EncodeLabel, []string{"color"}, known)
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Rows[0]["color"])
	assert.Equal(t, int64(0), out.Rows[1]["color"])
	assert.Nil(t, out.Rows[4]["color"])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.WarningUnknownCategory, res.Warnings[0].Code)
	assert.Equal(t, 4, res.Warnings[0].Row)
}

func TestEncodeRejectsNonTextColumn(t *testing.T) {
	_, _, err := EncodeCategorical(colors(), EncodeLabel, []string{"price"}, nil)
	assert.ErrorIs(t, err, model.ErrDataShape)
}

func TestStandardizeEncodesOnlyOriginalTextColumns(t *testing.T) {
	ds := model.NewDataset("t", []model.Column{
		{Name: "when", Type: model.TypeText},
		{Name: "city", Type: model.TypeText},
	})
	ds.AppendRow(model.Row{"when": "2023-01-15", "city": "oslo"})
	ds.AppendRow(model.Row{"when": "2023-01-16", "city": "rome"})

	opts := DefaultOptions()
	opts.EncodeCategorical = true
	cfg, err := NewConfig(opts)
	require.NoError(t, err)

	out, report, err := New(cfg, nil).Standardize(ds)
	require.NoError(t, err)

	assert.Equal(t, []string{"when"}, report.DatesStandardized)
	assert.Equal(t, []string{"city"}, report.ColumnsEncoded)
	assert.Equal(t, "2023-01-15", out.Rows[0]["when"])
	assert.Equal(t, int64(1), out.Rows[1]["city"])
	assert.Equal(t, []string{"oslo", "rome"}, report.Params.Encodings["city"])
}
