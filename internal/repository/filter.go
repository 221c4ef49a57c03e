package repository

import (
	"strconv"
	"strings"

	"github.com/tigertix/tigertix/internal/model"
)

const eventColumns = `event_id, event_name, event_date, number_of_tickets_available, price_of_a_ticket`

// dialect captures the few places where SQLite and PostgreSQL SQL differ.
type dialect struct {
	placeholder func(n int) string
	// likeOp is the case-insensitive pattern operator.
	likeOp   string
	textCast string
}

var (
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
		likeOp:      "LIKE",
	}
	postgresDialect = dialect{
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		likeOp:      "ILIKE",
		textCast:    "::text",
	}
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// listQuery builds the SELECT for an event listing. Set filter fields become
// AND-ed predicates; the name predicate is a substring match.
func listQuery(d dialect, filter model.EventFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(predicate string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(predicate, "{}", d.placeholder(len(args))))
	}

	if filter.Name != nil {
		add("event_name "+d.likeOp+" '%' || {}"+d.textCast+` || '%' ESCAPE '\'`, likeEscaper.Replace(*filter.Name))
	}
	if filter.Date != nil {
		add("event_date = {}", *filter.Date)
	}
	if filter.TicketPrice != nil {
		add("price_of_a_ticket = {}", *filter.TicketPrice)
	}
	if filter.TicketsAvailable != nil {
		add("number_of_tickets_available = {}", *filter.TicketsAvailable)
	}

	var b strings.Builder
	b.WriteString("SELECT " + eventColumns + " FROM events")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY event_id ASC")
	return b.String(), args
}
