package model

// ReferenceField is one column/value pair of a regulatory table row, kept in
// the column order reported by the database.
type ReferenceField struct {
	Name  string
	Value interface{}
}

type ReferenceRow []ReferenceField

// ReferenceMatch groups the rows of one regulatory table that matched a keyword
// on a given column.
type ReferenceMatch struct {
	Table   string         `json:"table"`
	Column  string         `json:"column"`
	Keyword string         `json:"keyword"`
	Rows    []ReferenceRow `json:"rows"`
}
