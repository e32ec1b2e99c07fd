// Package tostring renders row values as text for the export codecs and
// as SQL literals for executors without parameter binding.
package tostring

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// String is a rendered value. IsNULL marks values that should be written as
// the codec's NULL representation.
type String struct {
	String string
	IsNULL bool
}

// ToString renders v. Scalars of any named kind are formatted directly;
// time.Time uses RFC 3339; json.Marshaler and fmt.Stringer are honoured;
// anything else is JSON encoded. nil, the zero time and empty JSON
// containers are NULL.
func ToString(v any) String {
	if v == nil {
		return String{"", true}
	}
	switch v := v.(type) {
	case string:
		return String{v, false}
	case []byte:
		return String{string(v), false}
	case time.Time:
		if v.IsZero() {
			return String{"", true}
		}
		return String{v.Format(time.RFC3339Nano), false}
	case json.Marshaler:
		if data, err := v.MarshalJSON(); err == nil {
			return fromJSON(data)
		}
	case fmt.Stringer:
		return String{v.String(), false}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return String{"", true}
		}
		return ToString(rv.Elem().Interface())
	case reflect.Bool:
		return String{strconv.FormatBool(rv.Bool()), false}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return String{strconv.FormatInt(rv.Int(), 10), false}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return String{strconv.FormatUint(rv.Uint(), 10), false}
	case reflect.Float32:
		return String{strconv.FormatFloat(rv.Float(), 'f', -1, 32), false}
	case reflect.Float64:
		return String{strconv.FormatFloat(rv.Float(), 'f', -1, 64), false}
	case reflect.String:
		return String{rv.String(), false}
	}
	if data, err := jsonStd.Marshal(v); err == nil {
		return fromJSON(data)
	}
	return String{fmt.Sprintf("%v", v), false}
}

func fromJSON(data []byte) String {
	s := strings.Trim(string(data), `"`)
	if s == "[]" || s == "{}" || s == "null" {
		return String{"", true}
	}
	return String{s, false}
}

// SQLLiteral renders v as a SQL literal: NULL, TRUE/FALSE, a bare number or
// a single-quoted string with embedded quotes doubled.
func SQLLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return "TRUE"
		}
		return "FALSE"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ToString(v).String
	case reflect.Pointer:
		if rv.IsNil() {
			return "NULL"
		}
		return SQLLiteral(rv.Elem().Interface())
	}
	s := ToString(v)
	if s.IsNULL {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(s.String, "'", "''") + "'"
}
