package label

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate(t *testing.T) Template {
	t.Helper()
	tpl := Template{ID: "tpl-1", Name: "Pallet label", Width: 100, Height: 50, LastModified: 1718000000000}
	for i, kind := range []Kind{KindText, KindBarcode, KindLine, KindRectangle, KindLabelValue, KindTable} {
		e, err := NewElement(kind, string(kind)+"-1", float64(i), float64(i))
		require.NoError(t, err)
		tpl.Elements = append(tpl.Elements, e)
	}
	bound := tpl.Elements[0].Base()
	bound.Binding = &Binding{Key: "material", SchemaLabel: "Material", Format: FormatNone}
	bound.Value = "{Material}"
	return tpl
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	tpl := sampleTemplate(t)

	data, err := json.Marshal(tpl)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)

	if diff := cmp.Diff(tpl, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateJSONUsesFlatExchangeShape(t *testing.T) {
	tpl := sampleTemplate(t)
	data, err := json.Marshal(tpl)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1718000000000), raw["lastModified"])

	elements := raw["elements"].([]any)
	first := elements[0].(map[string]any)
	assert.Equal(t, "text", first["type"])
	assert.Equal(t, true, first["isDynamic"])
	assert.Equal(t, "material", first["bindingKey"])

	second := elements[1].(map[string]any)
	assert.NotContains(t, second, "isDynamic")
	assert.Equal(t, "code128", second["symbology"])
}

func TestUnmarshalUnknownKind(t *testing.T) {
	_, err := Parse([]byte(`{"width":10,"height":10,"elements":[{"id":"a","type":"hologram"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestNewElementDefaults(t *testing.T) {
	text, err := NewElement(KindText, "t", 0, 0)
	require.NoError(t, err)
	barcode, err := NewElement(KindBarcode, "b", 0, 0)
	require.NoError(t, err)

	_, textH := Size(text)
	_, barcodeH := Size(barcode)
	assert.Greater(t, barcodeH, textH)

	_, err = NewElement(Kind("circle"), "c", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSizeFallsBackToKindDefault(t *testing.T) {
	e := &Line{Common: Common{ID: "l"}}
	w, h := Size(e)
	dw, dh := DefaultSize(KindLine)
	assert.Equal(t, dw, w)
	assert.Equal(t, dh, h)
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate(Template{Width: 100, Height: 50}))

	tpl := Template{
		Width:  0,
		Height: -1,
		Elements: []Element{
			&Text{Common: Common{ID: "a"}},
			&Text{Common: Common{ID: "a"}},
			&Text{Common: Common{ID: ""}},
		},
	}
	codes := violationCodes(Validate(tpl))
	assert.ElementsMatch(t, []string{ViolationNonPositiveWidth, ViolationNonPositiveHeight, ViolationDuplicateID, ViolationEmptyID}, codes)
}

func TestValidateReportsOutOfCanvasAndMissingKey(t *testing.T) {
	w, h := 10.0, 10.0
	tpl := Template{
		Width:  100,
		Height: 50,
		Elements: []Element{
			&Text{Common: Common{ID: "far", X: 95, Y: 45, Width: &w, Height: &h}},
			&Text{Common: Common{ID: "bound", Binding: &Binding{}}},
		},
	}
	codes := violationCodes(Validate(tpl))
	assert.ElementsMatch(t, []string{ViolationOutOfCanvas, ViolationMissingBindingKey}, codes)
	assert.False(t, IsValid(tpl))
}

func TestMergeSchemaKeepsSystemFieldsFirst(t *testing.T) {
	persisted := []SchemaField{
		{ID: "1", Key: KeyOperatorName, Label: "Hijacked"},
		{ID: "2", Key: "material", Label: "Material", IsCustom: true},
		{ID: "3", Key: "material", Label: "Dup"},
		{ID: "4", Key: KeySalesOrder, Label: "SO"},
		{ID: "5", Key: ""},
	}

	merged := MergeSchema(persisted)
	require.Len(t, merged, 4)
	assert.Equal(t, KeyOperatorName, merged[0].Key)
	assert.Equal(t, "Operator", merged[0].Label)
	assert.True(t, merged[0].IsSystem)
	assert.Equal(t, KeyInputQty, merged[1].Key)
	assert.Equal(t, "Material", merged[2].Label)
	assert.Equal(t, KeySalesOrder, merged[3].Key)

	assert.Len(t, MergeSchema(nil), 2)
}

func TestSystemKeys(t *testing.T) {
	assert.True(t, IsSystemKey(KeyCIPLNumber))
	assert.True(t, IsReservedKey(KeyInputQty))
	assert.False(t, IsReservedKey(KeyRemarks))
	assert.False(t, IsSystemKey("material"))
}

func TestUsesAutoNumberAndClone(t *testing.T) {
	tpl := sampleTemplate(t)
	assert.False(t, UsesAutoNumber(tpl))

	tpl.Elements[1].Base().Binding = &Binding{Key: KeyCIPLNumber}
	assert.True(t, UsesAutoNumber(tpl))

	clone := CloneTemplate(tpl)
	clone.Elements[0].Base().X = 42
	*clone.Elements[0].Base().Width = 99
	clone.Elements[5].(*Table).Cells[0][0] = "changed"

	assert.NotEqual(t, 42.0, tpl.Elements[0].Base().X)
	assert.NotEqual(t, 99.0, *tpl.Elements[0].Base().Width)
	assert.Equal(t, "", tpl.Elements[5].(*Table).Cells[0][0])
	assert.NotNil(t, tpl.Element("table-1"))
	assert.Nil(t, tpl.Element("missing"))
}

func violationCodes(vs []Violation) []string {
	codes := make([]string, 0, len(vs))
	for _, v := range vs {
		codes = append(codes, v.Code)
	}
	return codes
}
