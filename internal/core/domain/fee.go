package domain

import "math/big"

// FeeEstimate is the cost of executing a wallet transaction, paid in the
// token of GasPrice.
type FeeEstimate struct {
	Gas            int64
	DataGas        int64
	OperationalGas int64
	GasPrice       TokenAmount
}

// ZeroFeeEstimate is the estimate of a transaction not estimated yet.
func ZeroFeeEstimate() FeeEstimate {
	return FeeEstimate{GasPrice: ZeroAmount(Ether)}
}

// IsZero ...
func (f FeeEstimate) IsZero() bool {
	return f.TotalGas() == 0 || f.GasPrice.IsZero()
}

// TotalGas ...
func (f FeeEstimate) TotalGas() int64 {
	return f.Gas + f.DataGas + f.OperationalGas
}

// TotalDisplayed returns (gas + dataGas + operationalGas) * gasPrice.
func (f FeeEstimate) TotalDisplayed() TokenAmount {
	total := new(big.Int).Mul(big.NewInt(f.TotalGas()), f.GasPrice.Value())
	return TokenAmount{Token: f.GasPrice.Token, Amount: total}
}

// IsAffordable returns whether the balance covers the total fee. A balance
// expressed in a different token never does.
func IsAffordable(estimate FeeEstimate, balance TokenAmount) bool {
	if !balance.Token.Equal(estimate.GasPrice.Token) {
		return false
	}
	return balance.Value().Cmp(estimate.TotalDisplayed().Value()) >= 0
}

// Remainder returns how much is still missing to cover the total fee,
// ie. max(total - balance, 0).
func Remainder(estimate FeeEstimate, balance TokenAmount) TokenAmount {
	total := estimate.TotalDisplayed().Abs()
	if !balance.Token.Equal(estimate.GasPrice.Token) {
		return total
	}
	remainder := new(big.Int).Sub(total.Value(), balance.Value())
	if remainder.Sign() < 0 {
		remainder.SetInt64(0)
	}
	return TokenAmount{Token: total.Token, Amount: remainder}
}
