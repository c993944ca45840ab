package topology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLEDIsBijection(t *testing.T) {
	for _, offset := range []int{0, 9, 24} {
		seen := map[int]int{}
		for r := 0; r < N; r++ {
			led := ToLED(r, offset)
			require.True(t, Valid(led), "offset %d region %d", offset, r)
			prev, dup := seen[led]
			require.False(t, dup, "offset %d: regions %d and %d share LED %d", offset, prev, r, led)
			seen[led] = r
			assert.Equal(t, r, ToRegion(led, offset))
		}
	}
}

func TestToLEDOutOfRange(t *testing.T) {
	assert.Equal(t, -1, ToLED(-1, 9))
	assert.Equal(t, -1, ToLED(N, 9))
	assert.Equal(t, -1, ToRegion(N, 9))
}

func TestCapitalFixed(t *testing.T) {
	assert.Equal(t, Capital, ToLED(Capital, 9))
	assert.Equal(t, 16, ToLED(CapitalOblast, 9))
	assert.Equal(t, 0, ToLED(16, 9))
}

func TestKyivMergedCollapsesOnePair(t *testing.T) {
	m := Mapper{Offset: 9, Variant: VariantFor(KyivMergeMode)}
	require.Equal(t, KyivMerged, m.Variant)

	seen := map[int][]int{}
	for r := 0; r < N; r++ {
		seen[m.LED(r)] = append(seen[m.LED(r)], r)
	}
	assert.Len(t, seen, N-1)
	assert.ElementsMatch(t, []int{CapitalOblast, Capital}, seen[7+9])
	assert.True(t, m.Dark(Capital))
	assert.False(t, Mapper{Offset: 9}.Dark(Capital))
}

func TestOffsetForLegacy(t *testing.T) {
	assert.Equal(t, 0, OffsetForLegacy(1))
	for _, l := range []int{0, 2, 3} {
		assert.Equal(t, 9, OffsetForLegacy(l))
	}
}

type cells map[int]Cell

func (c cells) Cell(r int) Cell { return c[r] }

func TestViewMergeUsesMaxAndOr(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	src := cells{
		CapitalOblast: {Active: true, Since: t0, Explosion: t0.Add(time.Minute), Drone: t0, Temp: 10, TempKnown: true},
		Capital:       {Active: false, Since: t0.Add(time.Hour), Explosion: t0, Missile: t0.Add(2 * time.Minute), Temp: 14, TempKnown: true},
	}

	m := Mapper{Offset: 9, Variant: KyivMerged}
	v := m.View(src)
	got := v[m.LED(Capital)]

	assert.True(t, got.Active)
	assert.Equal(t, t0.Add(time.Hour), got.Since)
	assert.Equal(t, t0.Add(time.Minute), got.Explosion)
	assert.Equal(t, t0.Add(2*time.Minute), got.Missile)
	assert.Equal(t, t0, got.Drone)
	assert.InDelta(t, 12.0, got.Temp, 1e-9)
	assert.Equal(t, Cell{}, v[Capital])

	// The source stays untouched.
	assert.False(t, src[Capital].Active)
}

func TestViewStandardKeepsPairApart(t *testing.T) {
	src := cells{Capital: {Active: true}}
	m := Mapper{Offset: 9}
	v := m.View(src)
	assert.True(t, v[Capital].Active)
	assert.False(t, v[m.LED(CapitalOblast)].Active)
}

func TestMergeTemperatureOneSide(t *testing.T) {
	got := Merge(Cell{}, Cell{Temp: -3, TempKnown: true})
	assert.True(t, got.TempKnown)
	assert.Equal(t, -3.0, got.Temp)
}

func TestNeighborsIncludeSelf(t *testing.T) {
	for r := 0; r < N; r++ {
		n := Neighbors(r)
		require.NotEmpty(t, n)
		assert.Equal(t, r, n[0])
		for _, x := range n {
			assert.True(t, Valid(x))
		}
	}
	assert.Nil(t, Neighbors(N))
	assert.Equal(t, "Kyiv", Name(Capital))
	assert.Equal(t, "", Name(-1))
}
