package binding

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelDesk/internal/datasource"
	"labelDesk/internal/label"
)

func bound(id, key string, format label.FormatKind) *label.Text {
	return &label.Text{Common: label.Common{
		ID:      id,
		Value:   "{" + key + "}",
		Binding: &label.Binding{Key: key, Format: format},
	}}
}

func newTestResolver() (*Resolver, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewResolver(logger), &buf
}

func TestStaticElementAlwaysReturnsValue(t *testing.T) {
	r, _ := newTestResolver()
	e := &label.Text{Common: label.Common{ID: "s", Value: "Hello"}}
	row := datasource.NewRow("hello", "other")

	for _, ctx := range []Context{
		{Mode: ModeDesign},
		{Mode: ModePreview, Session: Session{OperatorName: "Budi"}},
		{Mode: ModePrintRow, Row: &row},
	} {
		assert.Equal(t, "Hello", r.Resolve(e, ctx))
	}
}

func TestSystemKeyWinsOverRowColumn(t *testing.T) {
	r, _ := newTestResolver()
	row := datasource.NewRow(label.KeyOperatorName, "from-row")
	ctx := Context{Mode: ModePrintRow, Session: Session{OperatorName: "Siti"}, Row: &row}

	assert.Equal(t, "Siti", r.Resolve(bound("op", label.KeyOperatorName, label.FormatNone), ctx))
}

func TestSystemKeyPlaceholders(t *testing.T) {
	r, _ := newTestResolver()
	ctx := Context{Mode: ModePrintRow, Session: Session{Inputs: map[string]string{label.KeyRemarks: "  "}}}

	assert.Equal(t, "[Operator]", r.Resolve(bound("a", label.KeyOperatorName, ""), ctx))
	assert.Equal(t, "[Sales Order]", r.Resolve(bound("b", label.KeySalesOrder, ""), ctx))
	assert.Equal(t, "[Remarks]", r.Resolve(bound("c", label.KeyRemarks, ""), ctx))
	assert.Equal(t, "[CIPL No]", r.Resolve(bound("d", label.KeyCIPLNumber, ""), ctx))
	assert.Equal(t, "[Department]", r.Resolve(bound("e", label.KeyDepartment, ""), ctx))
}

func TestSystemKeysFromSession(t *testing.T) {
	r, _ := newTestResolver()
	session := Session{
		OperatorName: "Siti",
		Department:   "Gudang",
		Inputs:       map[string]string{label.KeyInputQty: "24", label.KeySalesOrder: "SO-77"},
	}.WithAutoNumber(1042)
	ctx := Context{Mode: ModePreview, Session: session, Now: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)}

	assert.Equal(t, "Gudang", r.Resolve(bound("a", label.KeyDepartment, ""), ctx))
	assert.Equal(t, "24", r.Resolve(bound("b", label.KeyInputQty, ""), ctx))
	assert.Equal(t, "SO-77", r.Resolve(bound("c", label.KeySalesOrder, ""), ctx))
	assert.Equal(t, "1042", r.Resolve(bound("d", label.KeyCIPLNumber, ""), ctx))
	assert.Equal(t, "05/03/2024", r.Resolve(bound("e", label.KeyPrintDate, ""), ctx))
}

func TestDesignModeWithoutRowShowsKeyPlaceholder(t *testing.T) {
	r, _ := newTestResolver()
	assert.Equal(t, "[material]", r.Resolve(bound("m", "material", ""), Context{Mode: ModeDesign}))
}

func TestRowLookup(t *testing.T) {
	r, _ := newTestResolver()
	row := datasource.NewRow("material", "ABC123", "qty", 12.5)
	ctx := Context{Mode: ModePrintRow, Row: &row}

	assert.Equal(t, "ABC123", r.Resolve(bound("m", "material", label.FormatNone), ctx))
	assert.Equal(t, "12.5", r.Resolve(bound("q", "qty", ""), ctx))
	assert.Equal(t, "", r.Resolve(bound("x", "absent", ""), ctx))
	assert.Equal(t, "", r.Resolve(bound("p", "material", ""), Context{Mode: ModePreview}))
}

func TestFormatFailureFallsBackToRawAndLogs(t *testing.T) {
	r, logs := newTestResolver()
	row := datasource.NewRow("price", "not-a-number", "due", "someday")
	ctx := Context{Mode: ModePrintRow, Row: &row}

	assert.Equal(t, "not-a-number", r.Resolve(bound("p", "price", label.FormatCurrencyIDR), ctx))
	assert.Equal(t, "someday", r.Resolve(bound("d", "due", label.FormatDateShort), ctx))
	assert.Contains(t, logs.String(), "format failure")
}

func TestEndToEndTextAndBarcodeShareBinding(t *testing.T) {
	r, _ := newTestResolver()
	tpl := label.Template{
		Width:  100,
		Height: 50,
		Elements: []label.Element{
			bound("text", "material", label.FormatNone),
			&label.Barcode{
				Common:    label.Common{ID: "barcode", Binding: &label.Binding{Key: "material", Format: label.FormatNone}},
				Symbology: label.SymbologyCode128,
			},
		},
	}
	row := datasource.NewRow("material", "ABC123")

	values := r.ResolveTemplate(tpl, Context{Mode: ModePrintRow, Row: &row})
	assert.Equal(t, map[string]string{"text": "ABC123", "barcode": "ABC123"}, values)
}

func TestPackageResolveAndKey(t *testing.T) {
	e := bound("m", "material", "")
	assert.Equal(t, "material", Key(e))
	assert.Equal(t, "", Key(&label.Line{}))
	assert.Equal(t, "[material]", Resolve(e, Context{Mode: ModeDesign}))
}

func TestBrokenLinksUseSchemaNotRow(t *testing.T) {
	tpl := label.Template{Elements: []label.Element{
		bound("known", "material", ""),
		bound("unknown", "colour", ""),
		bound("system", label.KeyCIPLNumber, ""),
		&label.Text{Common: label.Common{ID: "static", Value: "x"}},
	}}
	schema := label.MergeSchema([]label.SchemaField{{Key: "material"}})

	assert.Equal(t, []string{"unknown"}, BrokenLinks(tpl, schema))

	row := datasource.NewRow("colour", "red")
	assert.Equal(t, []string{"material"}, MissingColumns(tpl, row))
}

func TestSessionWithAutoNumberCopies(t *testing.T) {
	base := Session{OperatorName: "A"}
	withNumber := base.WithAutoNumber(7)
	require.NotNil(t, withNumber.AutoNumber)
	assert.Nil(t, base.AutoNumber)
	assert.Equal(t, int64(7), *withNumber.AutoNumber)
}
