package query

import "strings"

// group is one level of boolean grouping. Children are either predicate
// strings or nested groups.
type group struct {
	op       string
	children []any
}

func newGroup(op string) *group {
	return &group{op: op}
}

func (g *group) add(child any) {
	g.children = append(g.children, child)
}

// render returns the group's expression and whether it combines more than
// one predicate. Empty nested groups are skipped.
func (g *group) render() (string, bool) {
	type part struct {
		expr     string
		compound bool
	}

	parts := make([]part, 0, len(g.children))
	for _, c := range g.children {
		switch v := c.(type) {
		case string:
			parts = append(parts, part{expr: v})
		case *group:
			expr, compound := v.render()
			if expr != "" {
				parts = append(parts, part{expr: expr, compound: compound})
			}
		}
	}

	if len(parts) == 0 {
		return "", false
	}
	if len(parts) == 1 {
		return parts[0].expr, parts[0].compound
	}

	exprs := make([]string, len(parts))
	for i, p := range parts {
		if p.compound {
			exprs[i] = "(" + p.expr + ")"
		} else {
			exprs[i] = p.expr
		}
	}
	return strings.Join(exprs, " "+g.op+" "), true
}

// likeEscaper escapes LIKE wildcards with '/', which is also the escape
// character named in the rendered ESCAPE clause.
var likeEscaper = strings.NewReplacer("/", "//", "%", "/%", "_", "/_")

// textCondition compares column against an already quote-escaped value.
// With both anchors it is an exact, case-sensitive equality. Otherwise it is
// a LIKE in which wildcards inside value match literally.
func textCondition(column, escaped string, matchBegin, matchEnd, exclude bool) string {
	if matchBegin && matchEnd {
		op := "="
		if exclude {
			op = "<>"
		}
		return column + " " + op + " '" + escaped + "'"
	}

	like := "LIKE"
	if exclude {
		like = "NOT LIKE"
	}
	pattern := likeEscaper.Replace(escaped)
	if !matchBegin {
		pattern = "%" + pattern
	}
	if !matchEnd {
		pattern += "%"
	}
	return column + " " + like + " '" + pattern + "' ESCAPE '/'"
}
