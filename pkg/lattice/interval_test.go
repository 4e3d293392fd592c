package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalConstructors(t *testing.T) {
	tests := []struct {
		name      string
		itv       Interval
		empty     bool
		entire    bool
		singleton bool
	}{
		{"plain", NewInterval(0, 2), false, false, false},
		{"singleton", SingletonInterval(5), false, false, true},
		{"empty from inversion", NewInterval(3, 1), true, false, false},
		{"canonical empty", EmptyInterval(), true, false, false},
		{"entire", EntireInterval(), false, true, false},
		{"at least", AtLeast(3), false, false, false},
		{"at most", AtMost(3), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.itv.IsEmpty())
			assert.Equal(t, tt.entire, tt.itv.IsEntire())
			assert.Equal(t, tt.singleton, tt.itv.IsSingleton())
		})
	}
}

func TestIntervalMeet(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want Interval
	}{
		{"overlap", NewInterval(0, 5), NewInterval(3, 8), NewInterval(3, 5)},
		{"contained", NewInterval(0, 5), NewInterval(1, 2), NewInterval(1, 2)},
		{"disjoint", NewInterval(0, 1), NewInterval(3, 4), EmptyInterval()},
		{"entire is neutral", EntireInterval(), NewInterval(2, 4), NewInterval(2, 4)},
		{"empty absorbs", EmptyInterval(), NewInterval(2, 4), EmptyInterval()},
		{"half bounded", AtMost(3), AtLeast(1), NewInterval(1, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Meet(tt.b))
			assert.Equal(t, tt.want, tt.b.Meet(tt.a))
		})
	}
}

func TestIntervalJoin(t *testing.T) {
	assert.Equal(t, NewInterval(0, 8), NewInterval(0, 2).Join(NewInterval(6, 8)))
	assert.Equal(t, NewInterval(1, 3), EmptyInterval().Join(NewInterval(1, 3)))
	assert.Equal(t, NewInterval(1, 3), NewInterval(1, 3).Join(EmptyInterval()))
	assert.Equal(t, EmptyInterval(), EmptyInterval().Join(EmptyInterval()))
}

func TestIntervalContains(t *testing.T) {
	assert.True(t, NewInterval(0, 5).Contains(NewInterval(1, 4)))
	assert.True(t, NewInterval(0, 5).Contains(NewInterval(0, 5)))
	assert.False(t, NewInterval(0, 5).Contains(NewInterval(0, 6)))
	assert.True(t, NewInterval(0, 5).Contains(EmptyInterval()))
	assert.True(t, EntireInterval().Contains(NewInterval(-100, 100)))
}

func TestIntervalMedianAndWidth(t *testing.T) {
	tests := []struct {
		itv    Interval
		median int
		width  int
	}{
		{NewInterval(0, 2), 1, 2},
		{NewInterval(0, 3), 1, 3},
		{NewInterval(5, 5), 5, 0},
		{NewInterval(-4, 4), 0, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.median, tt.itv.Median(), "median of %v", tt.itv)
		assert.Equal(t, tt.width, tt.itv.Width(), "width of %v", tt.itv)
	}
}

func TestIntervalValuePanicsOnNonSingleton(t *testing.T) {
	require.Panics(t, func() { NewInterval(0, 2).Value() })
	assert.Equal(t, 7, SingletonInterval(7).Value())
}

func TestIntervalDeinterpret(t *testing.T) {
	f := SingletonInterval(3).Deinterpret()
	require.Equal(t, FInt, f.Kind)
	assert.Equal(t, 3, f.Int)
	require.Panics(t, func() { NewInterval(0, 2).Deinterpret() })
}

func TestSaturatingArithmetic(t *testing.T) {
	assert.Equal(t, PosInf, satAdd(PosInf, PosInf))
	assert.Equal(t, NegInf, satAdd(NegInf, NegInf))
	assert.Equal(t, PosInf, satSub(PosInf, NegInf))
	assert.Equal(t, NegInf, satSub(NegInf, PosInf))
	assert.Equal(t, 5, satAdd(2, 3))
	assert.Equal(t, -1, satSub(2, 3))
}
