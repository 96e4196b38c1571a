package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Token describes the asset an amount is expressed in. The native coin is
// identified by ZeroAddress.
type Token struct {
	Address  string
	Code     string
	Name     string
	Decimals int32
}

var (
	// Ether is the native coin.
	Ether = Token{
		Address:  ZeroAddress,
		Code:     "ETH",
		Name:     "Ether",
		Decimals: 18,
	}
)

// IsEther ...
func (t Token) IsEther() bool {
	return t.Address == "" || SameAddress(t.Address, ZeroAddress)
}

// Equal compares tokens by address.
func (t Token) Equal(other Token) bool {
	if t.IsEther() || other.IsEther() {
		return t.IsEther() && other.IsEther()
	}
	return SameAddress(t.Address, other.Address)
}

// TokenAmount is an integer amount expressed in the smallest unit of a token.
type TokenAmount struct {
	Token  Token
	Amount *big.Int
}

// NewTokenAmount ...
func NewTokenAmount(token Token, amount *big.Int) TokenAmount {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return TokenAmount{Token: token, Amount: new(big.Int).Set(amount)}
}

// ZeroAmount returns a zero amount of the given token.
func ZeroAmount(token Token) TokenAmount {
	return NewTokenAmount(token, nil)
}

// Value returns a copy of the amount, zero if not set.
func (a TokenAmount) Value() *big.Int {
	if a.Amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.Amount)
}

// IsZero ...
func (a TokenAmount) IsZero() bool {
	return a.Amount == nil || a.Amount.Sign() == 0
}

// Neg ...
func (a TokenAmount) Neg() TokenAmount {
	return TokenAmount{Token: a.Token, Amount: new(big.Int).Neg(a.Value())}
}

// Abs ...
func (a TokenAmount) Abs() TokenAmount {
	return TokenAmount{Token: a.Token, Amount: new(big.Int).Abs(a.Value())}
}

// Decimal returns the amount expressed in token units, ie. 1.5 ETH.
func (a TokenAmount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.Value(), -a.Token.Decimals)
}

func (a TokenAmount) String() string {
	return fmt.Sprintf("%s %s", a.Decimal().String(), a.Token.Code)
}
