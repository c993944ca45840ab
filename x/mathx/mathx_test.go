package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(7, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
	assert.Equal(t, 3, Clamp(3, 5, 0), "bounds swapped")
	assert.True(t, Between(2.5, 3.0, 1.0))
}

func TestNormAndLerp(t *testing.T) {
	assert.InDelta(t, 0.5, Norm(10.0, -10, 30), 1e-9)
	assert.Equal(t, 0.0, Norm(-40.0, -10, 30))
	assert.Equal(t, 1.0, Norm(99.0, -10, 30))
	assert.Equal(t, 0.0, Norm(1.0, 2, 2))
	assert.InDelta(t, 137.5, Lerp(275.0, 0, 0.5), 1e-9)
}

func TestMapRange(t *testing.T) {
	assert.Equal(t, 50, MapRange(5, 0, 10, 0, 100))
	assert.Equal(t, 100, MapRange(15, 0, 10, 0, 100))
	assert.Equal(t, 5, MapRange(0, 0, 10, 5, 50))
	assert.Equal(t, 7, MapRange(3, 3, 3, 7, 9))
}

func TestMod(t *testing.T) {
	assert.Equal(t, 24, Mod(-1, 25))
	assert.Equal(t, 9, Mod(34, 25))
	assert.Equal(t, 0, Mod(3, 0))
}

