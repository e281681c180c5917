package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = `{
	"passes": {
		"apass4": {
			"resolution": [20, 25, 0.5],
			"resolutionRun2": [60, 30, 0.4],
			"momentumChargeShift": [0.001]
		},
		"unanchored": {
			"resolution": [22, 28, 0.5]
		}
	}
}`

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection([]byte(testCollection))
	require.NoError(t, err)

	set, ok := c.Retrieve("apass4")
	require.True(t, ok)
	assert.Equal(t, []float64{20, 25, 0.5}, set.Resolution)
	assert.Equal(t, []float64{60, 30, 0.4}, set.ResolutionRun2)
	assert.Equal(t, []float64{0.001}, set.MomentumChargeShift)

	_, ok = c.Retrieve("apass9")
	assert.False(t, ok)
}

func TestParseCollectionRejectsEmpty(t *testing.T) {
	_, err := ParseCollection([]byte(`{"passes":{}}`))
	assert.Error(t, err)

	_, err = ParseCollection([]byte(`not json`))
	assert.Error(t, err)
}

func TestPassNamesSorted(t *testing.T) {
	c, err := ParseCollection([]byte(testCollection))
	require.NoError(t, err)
	assert.Equal(t, []string{"apass4", "unanchored"}, c.PassNames())
}
