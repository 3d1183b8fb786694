package filter

import (
	"strings"

	"gorm.io/gorm"
)

// likeEscape is accepted by postgres, mysql and sqlite alike, unlike backslash.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

func escapeLike(value string) string {
	return likeReplacer.Replace(value)
}

func containsPattern(value string) string {
	return "%" + escapeLike(value) + "%"
}

func prefixPattern(value string) string {
	return escapeLike(value) + "%"
}

// foldLike lowercases both sides in the database so they fold alike. sqlite's
// LOWER only folds ASCII, so non-ASCII text there matches case-sensitively.
func foldLike(column string) string {
	return "LOWER(" + column + ") LIKE LOWER(?) ESCAPE '" + likeEscape + "'"
}

// Contains matches rows whose column contains the value, ignoring case.
func Contains(name, column string) Definition {
	cond := foldLike(column)
	return Definition{
		Name: name,
		Kind: KindText,
		Predicate: func(stmt *gorm.DB, value any) *gorm.DB {
			return stmt.Where(cond, containsPattern(value.(string)))
		},
	}
}

// Prefix matches rows whose column starts with the value.
func Prefix(name, column string) Definition {
	cond := column + " LIKE ? ESCAPE '" + likeEscape + "'"
	return Definition{
		Name: name,
		Kind: KindText,
		Predicate: func(stmt *gorm.DB, value any) *gorm.DB {
			return stmt.Where(cond, prefixPattern(value.(string)))
		},
	}
}

// AtLeast is an inclusive lower bound on column.
func AtLeast(name, column string, kind Kind) Definition {
	cond := column + " >= ?"
	return Definition{
		Name:  name,
		Kind:  kind,
		Bound: BoundLower,
		Predicate: func(stmt *gorm.DB, value any) *gorm.DB {
			return stmt.Where(cond, value)
		},
	}
}

// AtMost is an inclusive upper bound on column.
func AtMost(name, column string, kind Kind) Definition {
	cond := column + " <= ?"
	return Definition{
		Name:  name,
		Kind:  kind,
		Bound: BoundUpper,
		Predicate: func(stmt *gorm.DB, value any) *gorm.DB {
			return stmt.Where(cond, value)
		},
	}
}

// ExistsContains keeps rows for which the correlated subquery finds at least
// one related row whose column contains the value, ignoring case. The
// subquery must end in a WHERE clause that correlates it with the outer row.
func ExistsContains(name, subquery, column string) Definition {
	cond := "EXISTS (" + subquery + " AND " + foldLike(column) + ")"
	return Definition{
		Name: name,
		Kind: KindText,
		Predicate: func(stmt *gorm.DB, value any) *gorm.DB {
			return stmt.Where(cond, containsPattern(value.(string)))
		},
	}
}

// ExistsEqual keeps rows for which the correlated subquery finds a related
// row with column equal to the value.
func ExistsEqual(name string, kind Kind, subquery, column string) Definition {
	cond := "EXISTS (" + subquery + " AND " + column + " = ?)"
	return Definition{
		Name: name,
		Kind: kind,
		Predicate: func(stmt *gorm.DB, value any) *gorm.DB {
			return stmt.Where(cond, value)
		},
	}
}
