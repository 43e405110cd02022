// Package fees holds the fee schedule for every settlement flow. All
// functions are pure.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/money"
)

var (
	// MinimumAmount is the smallest amount accepted for transfers and cash-out.
	MinimumAmount = money.FromUnits(50)
	// MaximumAmount is the largest amount accepted for any single movement.
	MaximumAmount = money.FromUnits(10_000_000)

	sendMoneyThreshold = money.FromUnits(100)
	sendMoneyFlatFee   = money.FromUnits(5)
	cashOutRate        = decimal.RequireFromString("0.015")
)

// SendMoney returns the flat transfer fee: 5.00 above 100.00, otherwise free.
func SendMoney(amount money.Amount) money.Amount {
	if amount > sendMoneyThreshold {
		return sendMoneyFlatFee
	}
	return 0
}

// CashOut returns 1.5% of amount, rounded to the nearest minor unit.
func CashOut(amount money.Amount) money.Amount {
	return amount.MulRate(cashOutRate)
}

// CashIn is free.
func CashIn(money.Amount) money.Amount {
	return 0
}

// CheckMinimum rejects amounts below MinimumAmount or above MaximumAmount.
func CheckMinimum(amount money.Amount) error {
	if amount < MinimumAmount {
		return apperr.ErrBelowMinimum
	}
	return CheckMaximum(amount)
}

// CheckPositive rejects zero, negative and oversized amounts.
func CheckPositive(amount money.Amount) error {
	if amount <= 0 {
		return apperr.ErrInvalidAmount
	}
	return CheckMaximum(amount)
}

// CheckMaximum rejects amounts above MaximumAmount. Below the cap, amount
// plus any fee fits in an Amount.
func CheckMaximum(amount money.Amount) error {
	if amount > MaximumAmount {
		return apperr.ErrAboveMaximum
	}
	return nil
}
