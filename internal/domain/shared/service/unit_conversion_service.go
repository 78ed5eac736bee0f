package service

import (
	"fmt"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ratioCheckScale bounds the digits used to test whether a unit ratio is a terminating decimal
const ratioCheckScale = 24

// ConversionRule converts a quantity in From into To by multiplying with Factor
type ConversionRule struct {
	From   valueobject.UnitCode
	To     valueobject.UnitCode
	Factor decimal.Decimal
}

type ruleKey struct {
	from valueobject.UnitCode
	to   valueobject.UnitCode
}

// UnitConversionResult represents the result of a unit conversion
type UnitConversionResult struct {
	// The quantity in the source unit (what was input)
	SourceQuantity decimal.Decimal
	// The unit code of the source unit
	SourceUnitCode valueobject.UnitCode
	// The factor applied (1 source unit = Factor base units)
	Factor decimal.Decimal
	// The quantity in base units (SourceQuantity * Factor)
	BaseQuantity decimal.Decimal
	// The base unit code
	BaseUnitCode valueobject.UnitCode
}

// UnitConversionService converts requested quantities into a product's base unit.
// It is a pure lookup over a fixed rule table; it holds no mutable state after construction.
type UnitConversionService struct {
	rules map[ruleKey]decimal.Decimal
}

// NewUnitConversionService creates a service over the default rule table
func NewUnitConversionService() *UnitConversionService {
	return &UnitConversionService{rules: defaultRuleIndex}
}

// NewUnitConversionServiceWithRules creates a service over a custom rule table.
// Identity rules are added for every unit that appears in the table.
func NewUnitConversionServiceWithRules(rules []ConversionRule) (*UnitConversionService, error) {
	index := make(map[ruleKey]decimal.Decimal, len(rules))
	for _, r := range rules {
		if !r.Factor.IsPositive() {
			return nil, fmt.Errorf("conversion factor for %s->%s must be positive", r.From, r.To)
		}
		index[ruleKey{r.From, r.To}] = r.Factor
		index[ruleKey{r.From, r.From}] = decimal.NewFromInt(1)
		index[ruleKey{r.To, r.To}] = decimal.NewFromInt(1)
	}
	return &UnitConversionService{rules: index}, nil
}

// DefaultConversionRules returns the static rule table: every same-dimension unit pair whose
// ratio is an exact (terminating) decimal, including the identity rule for each unit.
// Pairs such as KILOGRAM->POUND have a non-terminating ratio and are deliberately absent.
func DefaultConversionRules() []ConversionRule {
	units := valueobject.SupportedUnits()
	rules := make([]ConversionRule, 0, len(units)*len(units))
	for _, from := range units {
		for _, to := range units {
			if from.Dimension() != to.Dimension() {
				continue
			}
			factor, ok := exactRatio(from.PerReference(), to.PerReference())
			if !ok {
				continue
			}
			rules = append(rules, ConversionRule{From: from.Code(), To: to.Code(), Factor: factor})
		}
	}
	return rules
}

var defaultRuleIndex = func() map[ruleKey]decimal.Decimal {
	rules := DefaultConversionRules()
	index := make(map[ruleKey]decimal.Decimal, len(rules))
	for _, r := range rules {
		index[ruleKey{r.From, r.To}] = r.Factor
	}
	return index
}()

// exactRatio returns a/b when the quotient terminates within ratioCheckScale digits
func exactRatio(a, b decimal.Decimal) (decimal.Decimal, bool) {
	q := a.DivRound(b, ratioCheckScale)
	if !q.Mul(b).Equal(a) {
		return decimal.Zero, false
	}
	return q, true
}

// IsCompatible returns true iff a conversion rule exists from requested to base
func (s *UnitConversionService) IsCompatible(requested, base valueobject.UnitCode) bool {
	_, ok := s.rules[ruleKey{requested, base}]
	return ok
}

// Factor returns the multiplier converting requested into base
func (s *UnitConversionService) Factor(requested, base valueobject.UnitCode) (decimal.Decimal, bool) {
	f, ok := s.rules[ruleKey{requested, base}]
	return f, ok
}

// ConvertToBase returns quantity * factor(requested -> base) with exact decimal arithmetic.
// The sign of quantity is preserved so stock deltas can be converted too.
func (s *UnitConversionService) ConvertToBase(quantity decimal.Decimal, requested, base valueobject.UnitCode) (decimal.Decimal, error) {
	factor, ok := s.rules[ruleKey{requested, base}]
	if !ok {
		return decimal.Zero, UnitMismatchError(requested, base)
	}
	return quantity.Mul(factor), nil
}

// ConvertToBaseUnit converts and reports the applied factor alongside the result
func (s *UnitConversionService) ConvertToBaseUnit(quantity decimal.Decimal, requested, base valueobject.UnitCode) (*UnitConversionResult, error) {
	factor, ok := s.rules[ruleKey{requested, base}]
	if !ok {
		return nil, UnitMismatchError(requested, base)
	}
	return &UnitConversionResult{
		SourceQuantity: quantity,
		SourceUnitCode: requested,
		Factor:         factor,
		BaseQuantity:   quantity.Mul(factor),
		BaseUnitCode:   base,
	}, nil
}

// CompatibleUnits lists every unit that converts into base
func (s *UnitConversionService) CompatibleUnits(base valueobject.UnitCode) []valueobject.UnitCode {
	out := make([]valueobject.UnitCode, 0)
	for _, u := range valueobject.SupportedUnits() {
		if s.IsCompatible(u.Code(), base) {
			out = append(out, u.Code())
		}
	}
	return out
}

// UnitMismatchError builds the UNIT_MISMATCH error for a unit pair
func UnitMismatchError(requested, base valueobject.UnitCode) *shared.DomainError {
	return shared.ErrUnitMismatch.
		WithMessage(fmt.Sprintf("Cannot convert %s to %s", requested, base)).
		WithDetail("requested_unit", requested.String()).
		WithDetail("base_unit", base.String())
}
