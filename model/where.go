// Package model provides query/model-builder collaborators for paged
// views: a raw table builder and a gorm schema driven builder.
package model

import (
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

var (
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	ordering   = regexp.MustCompile(`(?i)^[A-Za-z_][A-Za-z0-9_.]*(\s+(ASC|DESC))?$`)
)

func quote(name string) string {
	return "`" + name + "`"
}

// where renders criteria as equality filters joined by AND, in key order.
// nil matches NULL and slices match any of their elements. resolve maps a
// criteria key to its qualified column.
func where(criteria source.Criteria, resolve func(key string) (string, error)) ([]string, []any, error) {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var (
		clauses []string
		params  []any
	)
	for _, k := range keys {
		column, err := resolve(k)
		if err != nil {
			return nil, nil, err
		}
		v := criteria[k]
		if v == nil {
			clauses = append(clauses, column+" IS NULL")
			continue
		}
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			if rv.Len() == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			marks := make([]string, rv.Len())
			for i := range marks {
				marks[i] = "?"
				params = append(params, rv.Index(i).Interface())
			}
			clauses = append(clauses, column+" IN ("+strings.Join(marks, ", ")+")")
			continue
		}
		clauses = append(clauses, column+" = ?")
		params = append(params, v)
	}
	return clauses, params, nil
}

// orderBy checks a comma separated list of columns with optional
// directions, qualifying bare columns with table.
func orderBy(table, order string) (string, error) {
	if strings.TrimSpace(order) == "" {
		return "", nil
	}
	parts := strings.Split(order, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if !ordering.MatchString(p) {
			return "", cursor.InvalidProperty(table, "order by "+p)
		}
		if !strings.Contains(p, ".") {
			p = quote(table) + "." + p
		}
		parts[i] = p
	}
	return strings.Join(parts, ", "), nil
}
