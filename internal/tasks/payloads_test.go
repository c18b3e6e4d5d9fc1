package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelDesk/internal/binding"
	"labelDesk/internal/datasource"
	"labelDesk/internal/label"
)

func TestNewPrintBatchTask(t *testing.T) {
	task, err := NewPrintBatchTask("job-1", "corr-1")
	require.NoError(t, err)
	assert.Equal(t, TypePrintBatch, task.Type())

	var payload PrintBatchPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, PrintBatchPayload{JobID: "job-1", CorrelationID: "corr-1"}, payload)
}

func TestNewLabelPreviewTaskCarriesTemplate(t *testing.T) {
	e, err := label.NewElement(label.KindText, "t1", 1, 1)
	require.NoError(t, err)
	e.Base().Binding = &label.Binding{Key: "material"}
	row := datasource.NewRow("material", "ABC123")

	task, err := NewLabelPreviewTask(LabelPreviewPayload{
		PreviewID: "p-1",
		Template:  label.Template{ID: "tpl", Width: 100, Height: 50, Elements: []label.Element{e}},
		Session:   binding.Session{OperatorName: "Siti"},
		Row:       &row,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeLabelPreview, task.Type())

	var payload LabelPreviewPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "p-1", payload.PreviewID)
	assert.Equal(t, "Siti", payload.Session.OperatorName)
	require.Len(t, payload.Template.Elements, 1)
	assert.Equal(t, "material", payload.Template.Elements[0].Base().BindingKey())
	require.NotNil(t, payload.Row)
	v, ok := payload.Row.Get("material")
	require.True(t, ok)
	assert.Equal(t, "ABC123", v)
}
