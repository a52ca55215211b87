package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsBreached(t *testing.T) {
	limit := decimal.NewFromInt(30)
	cases := []struct {
		volume string
		want   bool
	}{
		{volume: "42", want: true},
		{volume: "30", want: true},
		{volume: "29.99", want: false},
		{volume: "0", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.volume, func(t *testing.T) {
			assert.Equal(t, tc.want, IsBreached(decimal.RequireFromString(tc.volume), limit))
		})
	}
}
