package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purseHolder Purse

func (p purseHolder) Purse() Purse { return Purse(p) }

type priceHolder Amount

func (p priceHolder) UnitPrice() Amount { return Amount(p) }

func TestFromActor(t *testing.T) {
	got := FromActor(purseHolder{PP: 1, GP: 2, EP: 1, SP: 3, CP: 4})
	assert.Equal(t, "12.84", got.Decimal().String())
}

func TestFromItemAndMultiply(t *testing.T) {
	unit := FromItem(priceHolder(FromGP(10)))
	assert.True(t, Multiply(3, unit).Equal(FromGP(30)))
	assert.True(t, Multiply(0, unit).IsZero())
	assert.True(t, Multiply(-2, unit).IsZero())
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		name string
		a, b Amount
		want bool
	}{
		{name: "more", a: FromGP(50), b: FromGP(30), want: true},
		{name: "equal", a: FromGP(30), b: FromGP(30), want: true},
		{name: "less", a: FromGP(5), b: FromGP(10), want: false},
		{name: "copper precision", a: FromCopper(999), b: FromGP(10), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AtLeast(tt.a, tt.b))
		})
	}
}

func TestFromDecimal_NeverNegative(t *testing.T) {
	assert.True(t, FromDecimal(decimal.NewFromInt(-5)).IsZero())
	assert.Equal(t, int64(1), FromDecimal(decimal.RequireFromString("0.014")).Copper())
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{in: FromGP(30), want: "30gp"},
		{in: FromCopper(125), want: "1gp 2sp 5cp"},
		{in: FromCopper(5), want: "5cp"},
		{in: FromCopper(40), want: "4sp"},
		{in: Zero(), want: "0gp"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		wantCP  int64
		wantErr bool
	}{
		{in: "10gp", wantCP: 1000},
		{in: "2gp 5sp", wantCP: 250},
		{in: "1.5 gp", wantCP: 150},
		{in: "7", wantCP: 700},
		{in: "1pp 1ep 3cp", wantCP: 1053},
		{in: " 4 SP ", wantCP: 40},
		{in: "", wantErr: true},
		{in: "ten gp", wantErr: true},
		{in: "-3gp", wantErr: true},
		{in: "3xp", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCP, got.Copper())
		})
	}
}

func TestSub(t *testing.T) {
	rest, ok := FromGP(50).Sub(FromGP(30))
	assert.True(t, ok)
	assert.True(t, rest.Equal(FromGP(20)))

	same, ok := FromGP(5).Sub(FromGP(10))
	assert.False(t, ok)
	assert.True(t, same.Equal(FromGP(5)))
}
