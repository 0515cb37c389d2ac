package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/becmodel/internal/model"
)

func bands(labels ...string) []model.ElevationBand {
	out := make([]model.ElevationBand, 0, len(labels))
	for i, l := range labels {
		out = append(out, model.ElevationBand{PolygonNumber: 1 + i%2, Label: Pad(l)})
	}
	return out
}

func TestNewRegistry_DenseFirstAppearance(t *testing.T) {
	r := NewRegistry(bands("MS  xk 1", "ESSFxc 3", "MS  xk 1", "IMA un"))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []uint16{1, 2, 3}, r.Codes())
	assert.Equal(t, uint16(3), r.MaxCode())

	c, ok := r.Code("MS  xk 1")
	require.True(t, ok)
	assert.Equal(t, uint16(1), c)

	c, ok = r.Code("IMA un")
	require.True(t, ok)
	assert.Equal(t, uint16(3), c)
}

func TestRegistry_RoundTrip(t *testing.T) {
	labels := []string{"MS  xk 1", "ESSFxc 3", "ESSFxcw", "ESSFxcp", "IMA un"}
	r := NewRegistry(bands(labels...))

	for _, l := range labels {
		code, ok := r.Code(l)
		require.True(t, ok, l)
		back, ok := r.Label(code)
		require.True(t, ok, l)
		assert.Equal(t, Pad(l), back)
	}

	label, ok := r.Label(NoCode)
	assert.False(t, ok)
	assert.Empty(t, label)

	lookup := r.Lookup()
	assert.Len(t, lookup, len(labels)+1)
	assert.Equal(t, "", lookup[NoCode])
}

func TestRegistry_UnknownCode(t *testing.T) {
	r := NewRegistry(bands("MS  xk 1"))
	_, ok := r.Label(99)
	assert.False(t, ok)
	_, ok = r.Code("SBS dk")
	assert.False(t, ok)
}

func TestNewRegistryFromCatalogue(t *testing.T) {
	catalogue := map[string]int{
		Pad("MS  xk 1"): 120,
		Pad("ESSFxc 3"): 45,
		Pad("IMA un"):   300,
	}
	r, err := NewRegistryFromCatalogue(bands("MS  xk 1", "ESSFxc 3", "IMA un", "MS  xk 1"), catalogue)
	require.NoError(t, err)

	assert.Equal(t, []uint16{120, 45, 300}, r.Codes())
	assert.Equal(t, uint16(300), r.MaxCode())
	label, ok := r.Label(45)
	require.True(t, ok)
	assert.Equal(t, Pad("ESSFxc 3"), label)
}

func TestNewRegistryFromCatalogue_MissingLabels(t *testing.T) {
	catalogue := map[string]int{Pad("MS  xk 1"): 1}
	_, err := NewRegistryFromCatalogue(bands("MS  xk 1", "XX  bad", "YY  bad", "XX  bad"), catalogue)
	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
	assert.Contains(t, err.Error(), "XX  bad, YY  bad")
}

func TestNewRegistryFromCatalogue_OutOfRange(t *testing.T) {
	catalogue := map[string]int{Pad("MS  xk 1"): 70000}
	_, err := NewRegistryFromCatalogue(bands("MS  xk 1"), catalogue)
	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
}
