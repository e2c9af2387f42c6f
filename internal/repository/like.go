package repository

import (
	"strings"

	"gorm.io/gorm/clause"
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsIgnoreCase builds `LOWER(column) LIKE '%keyword%'` with the column
// identifier quoted by the dialect.
func containsIgnoreCase(column, keyword string) clause.Expr {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
	return clause.Expr{
		SQL:  "LOWER(?) LIKE ? ESCAPE '!'",
		Vars: []interface{}{clause.Column{Name: column}, pattern},
	}
}
