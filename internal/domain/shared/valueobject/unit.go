package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension groups units that measure the same physical quantity.
// Units only convert within a dimension.
type Dimension string

const (
	DimensionMass   Dimension = "MASS"
	DimensionVolume Dimension = "VOLUME"
	DimensionLength Dimension = "LENGTH"
	DimensionCount  Dimension = "COUNT"
)

// UnitCode identifies a unit of measure
type UnitCode string

// Supported unit codes
const (
	UnitMilligram  UnitCode = "MILLIGRAM"
	UnitGram       UnitCode = "GRAM"
	UnitKilogram   UnitCode = "KILOGRAM"
	UnitTonne      UnitCode = "TONNE"
	UnitOunce      UnitCode = "OUNCE"
	UnitPound      UnitCode = "POUND"
	UnitMilliliter UnitCode = "MILLILITER"
	UnitLiter      UnitCode = "LITER"
	UnitCubicMeter UnitCode = "CUBIC_METER"
	UnitGallon     UnitCode = "GALLON"
	UnitMillimeter UnitCode = "MILLIMETER"
	UnitCentimeter UnitCode = "CENTIMETER"
	UnitMeter      UnitCode = "METER"
	UnitKilometer  UnitCode = "KILOMETER"
	UnitInch       UnitCode = "INCH"
	UnitFoot       UnitCode = "FOOT"
	UnitPiece      UnitCode = "PIECE"
	UnitPair       UnitCode = "PAIR"
	UnitDozen      UnitCode = "DOZEN"
	UnitGross      UnitCode = "GROSS"

	// UnitPackage is a product-specific unit. Its size in base units comes from the
	// product's conversion factor, not from the static conversion table.
	UnitPackage UnitCode = "PACKAGE"
)

// MaxInputScale is the number of fractional digits accepted on quantities entered by callers
const MaxInputScale = 6

// String returns the string representation of the unit code
func (c UnitCode) String() string {
	return string(c)
}

// Unit is a value object describing a unit of measure.
// perReference is how many of the dimension's reference unit one of this unit holds
// (reference units: MILLIGRAM, MILLILITER, MILLIMETER, PIECE). All factors are exact decimals.
type Unit struct {
	code         UnitCode
	name         string
	dimension    Dimension
	perReference decimal.Decimal
}

func mustUnit(code UnitCode, name string, dim Dimension, perReference string) Unit {
	return Unit{
		code:         code,
		name:         name,
		dimension:    dim,
		perReference: decimal.RequireFromString(perReference),
	}
}

var supportedUnits = []Unit{
	mustUnit(UnitMilligram, "Milligram", DimensionMass, "1"),
	mustUnit(UnitGram, "Gram", DimensionMass, "1000"),
	mustUnit(UnitKilogram, "Kilogram", DimensionMass, "1000000"),
	mustUnit(UnitTonne, "Tonne", DimensionMass, "1000000000"),
	mustUnit(UnitOunce, "Ounce", DimensionMass, "28349.523125"),
	mustUnit(UnitPound, "Pound", DimensionMass, "453592.37"),

	mustUnit(UnitMilliliter, "Milliliter", DimensionVolume, "1"),
	mustUnit(UnitLiter, "Liter", DimensionVolume, "1000"),
	mustUnit(UnitCubicMeter, "Cubic meter", DimensionVolume, "1000000"),
	mustUnit(UnitGallon, "US gallon", DimensionVolume, "3785.411784"),

	mustUnit(UnitMillimeter, "Millimeter", DimensionLength, "1"),
	mustUnit(UnitCentimeter, "Centimeter", DimensionLength, "10"),
	mustUnit(UnitMeter, "Meter", DimensionLength, "1000"),
	mustUnit(UnitKilometer, "Kilometer", DimensionLength, "1000000"),
	mustUnit(UnitInch, "Inch", DimensionLength, "25.4"),
	mustUnit(UnitFoot, "Foot", DimensionLength, "304.8"),

	mustUnit(UnitPiece, "Piece", DimensionCount, "1"),
	mustUnit(UnitPair, "Pair", DimensionCount, "2"),
	mustUnit(UnitDozen, "Dozen", DimensionCount, "12"),
	mustUnit(UnitGross, "Gross", DimensionCount, "144"),
}

var unitsByCode = func() map[UnitCode]Unit {
	m := make(map[UnitCode]Unit, len(supportedUnits))
	for _, u := range supportedUnits {
		m[u.code] = u
	}
	return m
}()

// Short codes accepted from callers in addition to the canonical names
var unitAliases = map[string]UnitCode{
	"MG":  UnitMilligram,
	"G":   UnitGram,
	"KG":  UnitKilogram,
	"T":   UnitTonne,
	"OZ":  UnitOunce,
	"LB":  UnitPound,
	"ML":  UnitMilliliter,
	"L":   UnitLiter,
	"M3":  UnitCubicMeter,
	"GAL": UnitGallon,
	"MM":  UnitMillimeter,
	"CM":  UnitCentimeter,
	"M":   UnitMeter,
	"KM":  UnitKilometer,
	"IN":  UnitInch,
	"FT":  UnitFoot,
	"PCS": UnitPiece,
	"PC":  UnitPiece,
	"DZ":  UnitDozen,
	"PKG": UnitPackage,
}

// ParseUnitCode normalizes a caller-supplied unit (case-insensitive, aliases allowed)
func ParseUnitCode(s string) (UnitCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return "", fmt.Errorf("unit cannot be empty")
	}
	if alias, ok := unitAliases[normalized]; ok {
		return alias, nil
	}
	code := UnitCode(normalized)
	if code == UnitPackage {
		return code, nil
	}
	if _, ok := unitsByCode[code]; !ok {
		return "", fmt.Errorf("unknown unit %q", s)
	}
	return code, nil
}

// LookupUnit returns the unit definition for a code from the static table
func LookupUnit(code UnitCode) (Unit, bool) {
	u, ok := unitsByCode[code]
	return u, ok
}

// IsBaseUnitCandidate reports whether a product may track stock in this unit
func IsBaseUnitCandidate(code UnitCode) bool {
	_, ok := unitsByCode[code]
	return ok
}

// SupportedUnits returns every unit in the static table
func SupportedUnits() []Unit {
	out := make([]Unit, len(supportedUnits))
	copy(out, supportedUnits)
	return out
}

// Code returns the unit code
func (u Unit) Code() UnitCode {
	return u.code
}

// Name returns the display name
func (u Unit) Name() string {
	return u.name
}

// Dimension returns the dimension the unit belongs to
func (u Unit) Dimension() Dimension {
	return u.dimension
}

// PerReference returns how many reference units one of this unit holds
func (u Unit) PerReference() decimal.Decimal {
	return u.perReference
}

// String returns a string representation of the Unit
func (u Unit) String() string {
	return fmt.Sprintf("%s (%s)", u.code, u.name)
}

// ValidateInputQuantity checks a caller-supplied quantity is positive and carries at most
// MaxInputScale fractional digits
func ValidateInputQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("quantity must be positive")
	}
	if FractionalDigits(q) > MaxInputScale {
		return fmt.Errorf("quantity cannot have more than %d fractional digits", MaxInputScale)
	}
	return nil
}

// FractionalDigits returns the number of significant digits after the decimal point
func FractionalDigits(q decimal.Decimal) int32 {
	// Drop trailing zeros first so 1.500000000 counts as one digit.
	s := q.String()
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(s[idx+1:], "0")))
}
