package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{name: "integer", in: 42, want: "42"},
		{name: "decimal", in: 12.5, want: "12.5"},
		{name: "negative zero", in: math.Copysign(0, -1), want: "0"},
		{name: "large integer below threshold", in: 123456789012345680000, want: "123456789012345680000"},
		{name: "large", in: 1e21, want: "1e+21"},
		{name: "large with mantissa", in: -2.5e22, want: "-2.5e+22"},
		{name: "small above threshold", in: 0.000001, want: "0.000001"},
		{name: "small", in: 1.5e-7, want: "1.5e-7"},
		{name: "infinity", in: math.Inf(1), want: "Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", EmptyCell().String())
	assert.Equal(t, "abc", StringCell("abc").String())
	assert.Equal(t, "1e+21", NumberCell(1e21).String())
}
