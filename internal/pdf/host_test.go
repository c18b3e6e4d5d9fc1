package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelDesk/internal/label"
	"labelDesk/internal/render"
)

func launchOrSkip(t *testing.T) *Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("chromium tests skipped in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("chromium not installed")
	}
	browser, err := Launch(nil)
	if err != nil {
		t.Skipf("chromium unavailable: %v", err)
	}
	t.Cleanup(browser.Close)
	return browser
}

func testSurface(t *testing.T, labels int) render.Surface {
	t.Helper()
	e, err := label.NewElement(label.KindText, "t1", 2, 2)
	require.NoError(t, err)
	doc := render.Document{Template: label.Template{Width: 100, Height: 50, Elements: []label.Element{e}}}
	for i := 0; i < labels; i++ {
		doc.Labels = append(doc.Labels, render.Label{Values: map[string]string{"t1": "ABC123"}})
	}
	r, err := render.NewHTMLRenderer(nil, 203)
	require.NoError(t, err)
	s, err := r.Render(doc)
	require.NoError(t, err)
	return s
}

func TestHostPrintEmitsPDFEvent(t *testing.T) {
	host := NewHost(launchOrSkip(t), nil)
	s := testSurface(t, 2)

	events, err := host.Print(context.Background(), s)
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.True(t, bytes.HasPrefix(ev.Document, []byte("%PDF")))
	case <-time.After(time.Minute):
		t.Fatal("no print event")
	}

	host.Release(s)
	host.Release(s)
	host.mu.Lock()
	assert.Empty(t, host.pages)
	host.mu.Unlock()
}

func TestHostScreenshot(t *testing.T) {
	host := NewHost(launchOrSkip(t), nil)

	data, err := host.Screenshot(context.Background(), testSurface(t, 1), 80)
	require.NoError(t, err)
	// JPEG SOI marker
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}))
}

func TestClosedBrowserRejectsPrint(t *testing.T) {
	browser := launchOrSkip(t)
	browser.Close()

	_, err := NewHost(browser, nil).Print(context.Background(), testSurface(t, 1))
	assert.ErrorIs(t, err, ErrBrowserClosed)
}
