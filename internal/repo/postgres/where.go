package postgres

import (
	"fmt"
	"strconv"
	"strings"
)

// whereClause accumulates numbered predicates so the page and count queries
// of a listing share one WHERE text and one argument list.
type whereClause struct {
	sql   string
	args  []any
	parts []string
}

// add appends a predicate bound to one argument. Every "$?" in pred refers to
// that argument.
// listOrder is newest first; id breaks created_at ties so pages are stable.
const listOrder = " ORDER BY created_at DESC, id DESC"

func (w *whereClause) add(pred string, arg any) {
	w.args = append(w.args, arg)
	placeholder := "$" + strconv.Itoa(len(w.args))
	w.parts = append(w.parts, "("+strings.ReplaceAll(pred, "$?", placeholder)+")")
	w.sql = " WHERE " + strings.Join(w.parts, " AND ")
}

func (w whereClause) page() string {
	n := len(w.args)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
}

func (w whereClause) pageArgs(limit, offset int) []any {
	args := make([]any, 0, len(w.args)+2)
	args = append(args, w.args...)
	return append(args, limit, offset)
}
