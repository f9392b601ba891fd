package contact

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultDialCode preselects France.
const DefaultDialCode = "+33"

type country struct {
	region string
	dial   string
}

var countries = []country{
	{"FR", "+33"}, {"MC", "+377"}, {"IT", "+39"}, {"GR", "+30"}, {"RU", "+7"},
	{"GB", "+44"}, {"IE", "+353"}, {"DE", "+49"}, {"AT", "+43"}, {"CH", "+41"},
	{"BE", "+32"}, {"LU", "+352"}, {"NL", "+31"}, {"ES", "+34"}, {"PT", "+351"},
	{"DK", "+45"}, {"SE", "+46"}, {"NO", "+47"}, {"FI", "+358"}, {"PL", "+48"},
	{"CZ", "+420"}, {"HU", "+36"}, {"RO", "+40"}, {"BG", "+359"}, {"HR", "+385"},
	{"CY", "+357"}, {"MT", "+356"}, {"TR", "+90"}, {"UA", "+380"}, {"KZ", "+7"},
	{"US", "+1"}, {"CA", "+1"}, {"MX", "+52"}, {"BR", "+55"}, {"AR", "+54"},
	{"AE", "+971"}, {"SA", "+966"}, {"QA", "+974"}, {"IL", "+972"}, {"EG", "+20"},
	{"MA", "+212"}, {"ZA", "+27"}, {"IN", "+91"}, {"CN", "+86"}, {"HK", "+852"},
	{"SG", "+65"}, {"JP", "+81"}, {"KR", "+82"}, {"AU", "+61"}, {"NZ", "+64"},
}

var dialCodes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		m[c.dial] = struct{}{}
	}
	return m
}()

// KnownDialCode reports whether code is one of the offered dial codes.
func KnownDialCode(code string) bool {
	_, ok := dialCodes[code]
	return ok
}

// CountryOption is one entry of the dial-code select.
type CountryOption struct {
	Region   string
	Dial     string
	Name     string
	Selected bool
}

// Countries lists the dial codes with country names in lang, sorted by that locale's
// collation. The first option matching selected is marked, France when selected is empty.
func Countries(lang, selected string) []CountryOption {
	tag := language.Make(lang)
	names := display.Regions(tag)
	out := make([]CountryOption, 0, len(countries))
	selectRegion := "FR"
	if selected != "" && selected != DefaultDialCode {
		selectRegion = ""
	}
	for _, c := range countries {
		name := names.Name(language.MustParseRegion(c.region))
		if name == "" {
			name = c.region
		}
		opt := CountryOption{Region: c.region, Dial: c.dial, Name: name}
		if selectRegion != "" {
			opt.Selected = c.region == selectRegion
		} else if c.dial == selected {
			opt.Selected = true
			selectRegion = c.region
		}
		out = append(out, opt)
	}
	col := collate.New(tag)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}
