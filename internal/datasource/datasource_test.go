package datasource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHeader(t *testing.T) {
	cases := map[string]string{
		"Material":            "material",
		"  Sales Order  ":     "sales_order",
		"Plan / Batch No.":    "plan__batch_no",
		"Qty\t(pcs)":          "qty_pcs",
		"Berat   Bersih (kg)": "berat_bersih_kg",
		"Kode-Barang#":        "kodebarang",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeHeader(in), "header %q", in)
	}
}

func TestSanitizeHeaderIsIdempotent(t *testing.T) {
	for _, h := range []string{"Sales Order", "A  B  C", "x_y"} {
		once := SanitizeHeader(h)
		assert.Equal(t, once, SanitizeHeader(once))
	}
}

func TestFromRecordsKeepsOrder(t *testing.T) {
	ds := FromRecords(
		[]string{"Material", "Qty", "???"},
		[][]any{
			{"ABC123", 10, "ignored"},
			{"XYZ"},
		},
	)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"material", "qty"}, ds.Rows[0].Keys)

	v, ok := ds.Rows[0].Get("qty")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	_, ok = ds.Rows[1].Get("qty")
	assert.False(t, ok)
}

func TestSlice(t *testing.T) {
	ds := DataSource{Rows: make([]Row, 5)}
	rows, err := ds.Slice(1, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ds.Slice(3, 6)
	assert.Error(t, err)
	_, err = ds.Slice(4, 2)
	assert.Error(t, err)
}

func TestNewRowAndSet(t *testing.T) {
	row := NewRow("material", "ABC", "qty", 3, 7, "skipped")
	assert.Equal(t, []string{"material", "qty"}, row.Keys)

	row.Set("material", "DEF")
	assert.Equal(t, []string{"material", "qty"}, row.Keys)
	v, _ := row.Get("material")
	assert.Equal(t, "DEF", v)

	var empty Row
	_, ok := empty.Get("x")
	assert.False(t, ok)
}

func TestRowJSONKeepsColumnOrder(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"qty":5,"material":"ABC123","note":null}`), &row))

	assert.Equal(t, []string{"qty", "material", "note"}, row.Keys)
	qty, ok := row.Get("qty")
	require.True(t, ok)
	assert.Equal(t, json.Number("5"), qty)
	note, ok := row.Get("note")
	assert.True(t, ok)
	assert.Nil(t, note)

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"qty":5,"material":"ABC123","note":null}`, string(out))
}

func TestRowMarshalAppendsUnlistedValuesSorted(t *testing.T) {
	row := Row{
		Keys:   []string{"b", "b"},
		Values: map[string]any{"b": 1, "z": "last", "a": true},
	}
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":true,"z":"last"}`, string(out))

	out, err = json.Marshal(Row{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestDataSourceDecodesPlainObjects(t *testing.T) {
	var ds DataSource
	require.NoError(t, json.Unmarshal([]byte(`{"rows":[{"material":"ABC123"},{"material":"XYZ","qty":2}]}`), &ds))

	require.Equal(t, 2, ds.Len())
	v, ok := ds.Rows[0].Get("material")
	require.True(t, ok)
	assert.Equal(t, "ABC123", v)
	assert.Equal(t, []string{"material", "qty"}, ds.Rows[1].Keys)
}

func TestRowUnmarshalNullAndNonObject(t *testing.T) {
	row := NewRow("material", "keep")
	require.NoError(t, row.UnmarshalJSON([]byte(`null`)))
	v, _ := row.Get("material")
	assert.Equal(t, "keep", v)

	var bad Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"material"`), &bad))
}
