package scope

import (
	"strings"

	"gorm.io/gorm"
)

// ContainsFold matches rows where any of cols contains term, ignoring case.
// LIKE is case-sensitive on postgres, so both sides are lowered.
func ContainsFold(q *gorm.DB, term string, cols ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return q
	}
	like := "%" + strings.ToLower(term) + "%"
	conds := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		conds = append(conds, "LOWER("+col+") LIKE ?")
		args = append(args, like)
	}
	return q.Where("("+strings.Join(conds, " OR ")+")", args...)
}
