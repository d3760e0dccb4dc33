// Package bizstatus maps exchange business codes to the HTTP status and
// symbolic name the API documents for them.
package bizstatus

// DefaultHTTPStatus is returned for codes missing from the table.
const DefaultHTTPStatus = 500

// UnknownCode is the symbolic name reported for codes missing from the table.
const UnknownCode = "UNKNOWN"

var (
	httpByCode  = make(map[int]int, len(table))
	infosByCode = make(map[int][]Record, len(table))
)

func init() {
	for _, r := range table {
		if _, ok := httpByCode[r.Code]; !ok {
			httpByCode[r.Code] = r.HTTPStatus
		}
		infosByCode[r.Code] = append(infosByCode[r.Code], r)
	}
}

// ExpectedHTTPStatus returns the HTTP status of the first table row for code,
// or DefaultHTTPStatus when the code is unknown.
func ExpectedHTTPStatus(code int) int {
	if s, ok := httpByCode[code]; ok {
		return s
	}
	return DefaultHTTPStatus
}

// Infos returns every row for code in table order. Unknown codes yield an
// empty slice.
func Infos(code int) []Record {
	rows := infosByCode[code]
	out := make([]Record, len(rows))
	copy(out, rows)
	return out
}

// CodeString returns the symbolic name of the first row for code.
func CodeString(code int) string {
	if rows := infosByCode[code]; len(rows) > 0 {
		return rows[0].ShortCode
	}
	return UnknownCode
}

// Known reports whether code appears in the table.
func Known(code int) bool {
	_, ok := httpByCode[code]
	return ok
}

// Table returns a copy of every row in declaration order.
func Table() []Record {
	out := make([]Record, len(table))
	copy(out, table)
	return out
}
