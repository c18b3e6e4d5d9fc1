package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMMToPxAtReferenceDPI(t *testing.T) {
	assert.InDelta(t, 96.0, MMToPxAt96(25.4), 1e-9)
	assert.InDelta(t, 377.952755905, MMToPxAt96(100), 1e-6)
	assert.InDelta(t, 25.4, PxToMMAt96(96), 1e-9)
}

func TestRoundTrip(t *testing.T) {
	values := []float64{0, 0.1, 1, 5, 12.75, 50, 100, 210, 297, 1234.5678, 1e6}
	for _, mm := range values {
		got := PxToMMAt96(MMToPxAt96(mm))
		assert.InDelta(t, mm, got, 1e-9*math.Max(1, mm), "round trip for %v", mm)
	}
	for _, dpi := range []float64{PrinterDPI203, PrinterDPI300, PrinterDPI600} {
		assert.InDelta(t, 42.0, PxToMM(MMToPx(42, dpi), dpi), 1e-9)
	}
}

func TestNonPositiveDPIFallsBack(t *testing.T) {
	assert.Equal(t, MMToPxAt96(10), MMToPx(10, 0))
	assert.Equal(t, PxToMMAt96(10), PxToMM(10, -1))
}

func TestPrintScale(t *testing.T) {
	assert.InDelta(t, 96.0/203.0, PrintScale(PrinterDPI203), 1e-12)
	assert.InDelta(t, 0.32, PrintScale(PrinterDPI300), 1e-12)
	assert.Equal(t, 1.0, PrintScale(0))
}

func TestMMToInches(t *testing.T) {
	assert.InDelta(t, 1.0, MMToInches(25.4), 1e-12)
	assert.InDelta(t, 3.937007874, MMToInches(100), 1e-9)
}
