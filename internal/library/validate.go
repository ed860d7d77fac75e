package library

import (
	"encoding/json"
	"strings"
)

// requiredFields lists the fields that must be present on creation, in the
// order missing ones are reported.
var requiredFields = []string{"book_id", "title", "author", "genre", "year", "copies"}

var (
	numberFields = []string{"year", "copies"}
	stringFields = []string{"title", "author", "genre"}
)

// Validate checks a decoded JSON object against the book schema and returns
// every problem found, or nil.
//
// When requireAllFields is true, each absent field yields "Missing field:
// <name>". Independently, year and copies must be numbers and title, author
// and genre must be strings when present. book_id is only checked for
// presence.
//
// Numbers are expected as json.Number (json.Decoder.UseNumber) but float64
// and integer values are accepted too. A json.Number that does not fit a
// float64, like 1e400, is not a number.
func Validate(candidate map[string]any, requireAllFields bool) []string {
	var errs []string
	if requireAllFields {
		for _, name := range requiredFields {
			if _, ok := candidate[name]; !ok {
				errs = append(errs, "Missing field: "+name)
			}
		}
	}
	for _, name := range numberFields {
		if v, ok := candidate[name]; ok && !isNumber(v) {
			errs = append(errs, fieldLabel(name)+" must be a number")
		}
	}
	for _, name := range stringFields {
		if v, ok := candidate[name]; ok && !isString(v) {
			errs = append(errs, fieldLabel(name)+" must be a string")
		}
	}
	return errs
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case json.Number:
		_, err := n.Float64()
		return err == nil
	case float64, float32, int, int64, int32:
		return true
	default:
		return false
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// fieldLabel capitalizes the first letter of a field name.
func fieldLabel(name string) string {
	return strings.ToUpper(name[:1]) + name[1:]
}
