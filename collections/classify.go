/*
classify.go - Payment classification

PURPOSE:
  Classifies a tendered payment amount against an installment's
  outstanding balance: partial, exact, or excess. Pure function; the
  registrar decides what to do with the result.

RUNNING-BALANCE SEMANTICS:
  Classification always runs against the outstanding balance
  (amount due - amount paid), not the original scheduled amount. A second
  payment of 300.00 against an installment of 1000.00 that already
  received 700.00 therefore classifies as exact.

TOLERANCE:
  A fixed tolerance of 0.01 currency units absorbs rounding: amounts
  within tolerance of the outstanding balance are exact.
*/
package collections

import "github.com/shopspring/decimal"

// Classification is the outcome kind of classifying one tendered amount.
type Classification string

const (
	ClassPartial Classification = "partial"
	ClassExact   Classification = "exact"
	ClassExcess  Classification = "excess"
)

// ClassifiedPayment is the result of classifying a tendered amount.
// Remaining is set for partial, Excess for excess; both are zero otherwise.
type ClassifiedPayment struct {
	Class     Classification
	Remaining decimal.Decimal
	Excess    decimal.Decimal
}

// Classify compares a tendered amount to an outstanding balance.
func Classify(tendered, outstanding decimal.Decimal) ClassifiedPayment {
	diff := tendered.Sub(outstanding)
	switch {
	case diff.Abs().LessThanOrEqual(Tolerance):
		return ClassifiedPayment{Class: ClassExact}
	case diff.IsNegative():
		return ClassifiedPayment{Class: ClassPartial, Remaining: diff.Neg()}
	default:
		return ClassifiedPayment{Class: ClassExcess, Excess: diff}
	}
}
