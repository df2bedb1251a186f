package ledger

import (
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// BasisPoints is the denominator for fee and win-rate fractions.
const BasisPoints = 10000

func add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

func mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}

func dec(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// mulDiv returns floor(a*b/c) computed without intermediate overflow.
// c must be non-zero.
func mulDiv(a, b, c uint64) (uint64, error) {
	q, _ := dec(a).Mul(dec(b)).QuoRem(dec(c), 0)
	n := q.BigInt()
	if !n.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return n.Uint64(), nil
}

// Payout is the pooled-proportional reward for a winning stake:
// floor(totalPool * winStake / winningPool). winningPool must be non-zero.
func Payout(totalPool, winStake, winningPool uint64) (uint64, error) {
	if winStake == 0 {
		return 0, nil
	}
	return mulDiv(totalPool, winStake, winningPool)
}

// Fee returns floor(amount * bps / 10000).
func Fee(amount, bps uint64) (uint64, error) {
	return mulDiv(amount, bps, BasisPoints)
}
