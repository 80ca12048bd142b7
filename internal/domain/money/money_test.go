package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{"whole", "45", 4500, false},
		{"cents", "45.67", 4567, false},
		{"negative", "-29.99", -2999, false},
		{"one decimal", "0.5", 50, false},
		{"too precise", "1.005", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "45.67", Amount(4567).String())
	assert.Equal(t, "-0.05", Amount(-5).String())
	assert.Equal(t, "0.00", Amount(0).String())
}

func TestMilliunits(t *testing.T) {
	a, err := FromMilliunits(-45670)
	require.NoError(t, err)
	assert.Equal(t, Amount(-4567), a)
	assert.Equal(t, int64(-45670), a.Milliunits())

	_, err = FromMilliunits(12345)
	assert.Error(t, err, "fractional minor units are rejected")
}

func TestAmount_Helpers(t *testing.T) {
	assert.Equal(t, Amount(10), Amount(-10).Abs())
	assert.Equal(t, Amount(-10), Amount(10).Neg())
	assert.Equal(t, Amount(3000), Amount(1000).Mul(3))
	assert.Equal(t, -1, Amount(-1).Sign())
	assert.Equal(t, 0, Amount(0).Sign())
	assert.Equal(t, Amount(4567), Sum(2999, 1568))
}
