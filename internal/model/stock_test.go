package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSymbolID(t *testing.T) {
	m, code, ok := ParseSymbolID("1.600519")
	assert.True(t, ok)
	assert.Equal(t, MarketSH, m)
	assert.Equal(t, "600519", code)

	for _, bad := range []string{"600519", "9.600519", "1.", ""} {
		_, _, ok := ParseSymbolID(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, "2.830799", Symbol{Code: "830799"}.ID(MarketBJ))
}

func TestBarSeriesTrim(t *testing.T) {
	b := BarSeries{Dates: []string{"a", "b", "c"}, Closes: []float64{1, 2, 3}}
	got := b.Trim(2)
	assert.Equal(t, []string{"b", "c"}, got.Dates)
	assert.Equal(t, []float64{2, 3}, got.Closes)
	got.Closes[0] = 99
	assert.Equal(t, 2.0, b.Closes[1], "trim copies")
	assert.Equal(t, b, b.Trim(0))
	assert.Equal(t, b, b.Trim(5))
	assert.True(t, b.Valid())
	assert.False(t, BarSeries{Dates: []string{"a"}}.Valid())
}

func TestParseMarket(t *testing.T) {
	m, ok := ParseMarket(" SZ ")
	assert.True(t, ok)
	assert.Equal(t, MarketSZ, m)
	_, ok = ParseMarket("hk")
	assert.False(t, ok)
	assert.Equal(t, "7", Market(7).String())
}
