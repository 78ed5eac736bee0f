// Package models maps the domain aggregates onto GORM tables. The domain
// packages carry no ORM tags; each model here converts with ToDomain and
// FromDomain, and only repositories touch these types.
//
// Quantities and amounts use unconstrained NUMERIC columns so base-unit
// conversions keep every fractional digit.
package models
