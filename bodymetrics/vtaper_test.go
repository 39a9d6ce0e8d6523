package bodymetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVTaper(t *testing.T) {
	p := Profile{Shoulder: 120, Waist: 80, Unit: Metric}
	ratio, err := p.VTaper()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, ratio, 1e-9)

	// The ratio is unit-independent.
	imp := Profile{Shoulder: CmToIn(120), Waist: CmToIn(80), Unit: Imperial}
	impRatio, err := imp.VTaper()
	require.NoError(t, err)
	assert.InDelta(t, ratio, impRatio, 1e-9)
}

func TestVTaperRejectsBadMeasurements(t *testing.T) {
	for _, p := range []Profile{
		{Shoulder: 0, Waist: 80},
		{Shoulder: 120, Waist: 0},
		{Shoulder: -1, Waist: 80},
	} {
		_, err := p.VTaper()
		assert.Error(t, err)
	}
}

func TestUnitNormalization(t *testing.T) {
	p := Profile{Shoulder: 50, Waist: 30, Unit: Imperial}
	assert.InDelta(t, 127.0, p.ShoulderCm(), 1e-9)
	assert.InDelta(t, 76.2, p.WaistCm(), 1e-9)

	m := Profile{Shoulder: 120, Waist: 80, Unit: Metric}
	assert.InDelta(t, 120.0, m.ShoulderCm(), 1e-9)

	assert.InDelta(t, 10.0, InToCm(CmToIn(10)), 1e-9)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "golden", Classify(1.618))
	assert.Equal(t, "athletic", Classify(1.5))
	assert.Equal(t, "developing", Classify(1.3))
	assert.Equal(t, "foundation", Classify(1.1))
}
