package persistence

import (
	"slices"
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a listing may sort by. Anything else falls back to the
// first column, so caller input never reaches the ORDER BY text.
type sortColumns []string

var (
	productSort  = sortColumns{"created_at", "updated_at", "name", "sku", "price_per_base_uom"}
	orderSort    = sortColumns{"created_at", "updated_at", "order_number", "total_amount", "status"}
	movementSort = sortColumns{"created_at"}
)

// orderBy builds the ORDER BY clause for a listing. Direction is descending unless dir is
// "asc"; id is appended so pages stay stable when the sort column ties.
func (s sortColumns) orderBy(column, dir string) clause.OrderBy {
	column = strings.TrimSpace(column)
	if !slices.Contains(s, column) {
		column = s[0]
	}
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: !strings.EqualFold(strings.TrimSpace(dir), "asc")},
		{Column: clause.Column{Name: "id"}},
	}}
}
