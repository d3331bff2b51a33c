// Package countries maps ISO 3166-1 alpha-2 codes, as reported by mirror status APIs, to countries.
package countries

import (
	"strings"

	iso "github.com/biter777/countries"
)

type Country struct {
	Code string
	Name string
}

func (c Country) String() string {
	return c.Name
}

// Lookup returns the country for the given alpha-2 code, or nil if the code is empty or unknown.
// Codes are matched case-insensitively.
func Lookup(code string) *Country {
	code = strings.ToUpper(strings.TrimSpace(code))
	// iso.ByName also matches alpha-3 codes and names, which mirror lists do not carry.
	if len(code) != 2 {
		return nil
	}

	cc := iso.ByName(code)
	if cc == iso.Unknown || !cc.IsValid() || cc.Alpha2() != code {
		return nil
	}

	return &Country{
		Code: cc.Alpha2(),
		Name: cc.String(),
	}
}
