package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"(1,234.56)", -1234.56},
		{"1,000", 1000.0},
		{"", 0.0},
		{"  $2,500.75 ", 2500.75},
		{"-97.2", -97.2},
		{"(0.01)", -0.01},
		{"n/a", 0.0},
		{"USD 12", 12.0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Parse(c.in), "Parse(%q)", c.in)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, -10.01, Round2(-10.005))
	assert.Equal(t, 10.0, Round2(10.0049))
	assert.Equal(t, 0.0, Round2(0.0))
}

func TestSum2(t *testing.T) {
	// 10.00 + (-10.005→-10.01) leaves a one-cent residue.
	assert.Equal(t, -0.01, Sum2([]float64{10.00, -10.005}))
	assert.Equal(t, 0.0, Sum2(nil))
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(0.004))
	assert.False(t, IsZero(0.01))
}
