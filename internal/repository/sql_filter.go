package repository

import (
	"strconv"
	"strings"

	"github.com/iliyamo/table-reservation/internal/model"
)

// dialect captures the few differences between the SQL adapters.
type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	mysqlDialect    = dialect{name: "mysql", placeholder: func(int) string { return "?" }}
	postgresDialect = dialect{name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

// compileWhere turns preds into a WHERE condition (without the keyword) and
// its positional arguments.  The discriminator is always the first term so
// reservations can share the documents table with other kinds.
func compileWhere(d dialect, preds []Predicate) (string, []any) {
	where := []string{"type = " + d.placeholder(1)}
	args := []any{model.DocumentTypeReservation}
	next := func(v any) string {
		args = append(args, v)
		return d.placeholder(len(args))
	}

	for _, p := range preds {
		switch p := p.(type) {
		case StatusIn:
			if len(p.Statuses) == 0 {
				where = append(where, "1 = 0")
				continue
			}
			marks := make([]string, 0, len(p.Statuses))
			for _, s := range p.Statuses {
				marks = append(marks, next(string(s)))
			}
			where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
		case ArrivalFrom:
			where = append(where, "expected_arrival_time >= "+next(p.At.UTC()))
		case ArrivalUntil:
			where = append(where, "expected_arrival_time <= "+next(p.At.UTC()))
		case NameContains:
			where = append(where, "LOWER(guest_name) LIKE "+next(likePattern(p.Substr)))
		case EmailContains:
			where = append(where, "LOWER(guest_email) LIKE "+next(likePattern(p.Substr)))
		case TableSizeEq:
			where = append(where, "table_size = "+next(p.Size))
		}
	}
	return strings.Join(where, " AND "), args
}

// orderClause renders o.  Unknown values fall back to the only supported
// order.
func orderClause(o Order) string {
	switch o {
	case OrderCreatedDesc:
		return "created_at DESC, id DESC"
	}
	return "created_at DESC, id DESC"
}

// likePattern lower-cases s, escapes LIKE wildcards and wraps it in %...%.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// selectQuery builds the paged data query.  Limit 0 omits LIMIT/OFFSET.
func selectQuery(d dialect, q Query) (string, []any) {
	cond, args := compileWhere(d, q.Predicates)
	sql := "SELECT body FROM documents WHERE " + cond + " ORDER BY " + orderClause(q.Order)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += " LIMIT " + d.placeholder(len(args))
		args = append(args, q.Offset)
		sql += " OFFSET " + d.placeholder(len(args))
	}
	return sql, args
}

// countQuery builds the COUNT(*) query matching the same predicates.
func countQuery(d dialect, preds []Predicate) (string, []any) {
	cond, args := compileWhere(d, preds)
	return "SELECT COUNT(*) FROM documents WHERE " + cond, args
}
