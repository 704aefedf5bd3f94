package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/normalize"
)

// OperationKind is the wire name of a price operation.
type OperationKind string

const (
	KindIncreaseFixed   OperationKind = "increase-fixed"
	KindDecreaseFixed   OperationKind = "decrease-fixed"
	KindIncreasePercent OperationKind = "increase-percent"
	KindDecreasePercent OperationKind = "decrease-percent"
)

// Kinds lists every operation kind, in display order.
var Kinds = []OperationKind{
	KindIncreaseFixed,
	KindDecreaseFixed,
	KindIncreasePercent,
	KindDecreasePercent,
}

// ParseKind validates an operation kind name.
func ParseKind(s string) (OperationKind, error) {
	kind := OperationKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown price operation %q", s)
}

// Operation is a bulk price change. The set of implementations is closed:
// IncreaseFixed, DecreaseFixed, IncreasePercent and DecreasePercent.
type Operation interface {
	Kind() OperationKind
	String() string
	isPriceOperation()
}

// IncreaseFixed adds Amount to the price.
type IncreaseFixed struct{ Amount float64 }

// DecreaseFixed subtracts Amount from the price, never going below zero.
type DecreaseFixed struct{ Amount float64 }

// IncreasePercent raises the price by Percent percent.
type IncreasePercent struct{ Percent float64 }

// DecreasePercent lowers the price by Percent percent, never below zero.
type DecreasePercent struct{ Percent float64 }

func (IncreaseFixed) Kind() OperationKind   { return KindIncreaseFixed }
func (DecreaseFixed) Kind() OperationKind   { return KindDecreaseFixed }
func (IncreasePercent) Kind() OperationKind { return KindIncreasePercent }
func (DecreasePercent) Kind() OperationKind { return KindDecreasePercent }

func (o IncreaseFixed) String() string   { return "+" + FormatCents(o.Amount) }
func (o DecreaseFixed) String() string   { return "-" + FormatCents(o.Amount) }
func (o IncreasePercent) String() string { return fmt.Sprintf("+%g%%", o.Percent) }
func (o DecreasePercent) String() string { return fmt.Sprintf("-%g%%", o.Percent) }

func (IncreaseFixed) isPriceOperation()   {}
func (DecreaseFixed) isPriceOperation()   {}
func (IncreasePercent) isPriceOperation() {}
func (DecreasePercent) isPriceOperation() {}

// ApplyOperation applies op to price. The result is clamped at zero and
// rounded to the cent.
func ApplyOperation(price float64, op Operation) float64 {
	var result float64
	switch o := op.(type) {
	case IncreaseFixed:
		result = price + o.Amount
	case DecreaseFixed:
		result = price - o.Amount
	case IncreasePercent:
		result = price * (1 + o.Percent/100)
	case DecreasePercent:
		result = price * (1 - o.Percent/100)
	default:
		panic(fmt.Sprintf("pricing: unhandled operation %T", op))
	}
	return Round2(math.Max(0, result))
}

// ApplyOperationToString applies op to a price string.
//
// RETURNS:
//   - "" for "".
//   - price unchanged when it is not numeric.
//   - The new price with two decimals otherwise.
func ApplyOperationToString(price string, op Operation) string {
	if price == "" {
		return ""
	}
	p, ok := normalize.ParseFloat(price)
	if !ok {
		return price
	}
	return FormatCents(ApplyOperation(p, op))
}

// BuildOperation turns a kind and a user-typed operand into an Operation.
//
// RETURNS:
//   - nil when the operand is not a number, is negative, or kind is unknown.
//     A nil operation means "not configured yet", never an error.
func BuildOperation(kind OperationKind, value string) Operation {
	n, ok := normalize.ParseFloat(value)
	if !ok || n < 0 || math.IsInf(n, 0) {
		return nil
	}

	switch kind {
	case KindIncreaseFixed:
		return IncreaseFixed{Amount: n}
	case KindDecreaseFixed:
		return DecreaseFixed{Amount: n}
	case KindIncreasePercent:
		return IncreasePercent{Percent: n}
	case KindDecreasePercent:
		return DecreasePercent{Percent: n}
	default:
		return nil
	}
}
