package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuantizer_FloorPrice(t *testing.T) {
	tests := []struct {
		name  string
		price string
		tick  string
		want  string
	}{
		{"already aligned", "102960", "0.1", "102960"},
		{"rounds down not up", "102960.19", "0.1", "102960.1"},
		{"coarse tick", "98000.99", "10", "98000"},
		{"tick larger than price", "0.5", "1", "0"},
		{"zero tick leaves price", "123.456", "0", "123.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := domain.Quantizer{TickSize: d(tt.tick)}
			got := q.FloorPrice(d(tt.price))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestQuantizer_FloorIsMultipleAndNotAbove(t *testing.T) {
	prices := []string{"0.0001", "1", "99999.999", "104000", "102959.5", "31337.1337"}
	ticks := []string{"0.1", "0.01", "0.5", "1", "25", "0.0003"}

	for _, p := range prices {
		for _, tk := range ticks {
			q := domain.Quantizer{TickSize: d(tk)}
			got := q.FloorPrice(d(p))
			assert.True(t, got.LessThanOrEqual(d(p)), "%s floored by %s = %s", p, tk, got)
			assert.True(t, got.Mod(d(tk)).IsZero(), "%s is not a multiple of %s", got, tk)
		}
	}
}

func TestQuantizer_FloorQuantity(t *testing.T) {
	q := domain.Quantizer{StepSize: d("1")}
	assert.True(t, q.FloorQuantity(d("1")).Equal(d("1")))
	assert.True(t, q.FloorQuantity(d("2.9")).Equal(d("2")))

	q = domain.Quantizer{StepSize: d("0.001")}
	assert.True(t, q.FloorQuantity(d("0.0029")).Equal(d("0.002")))
}
