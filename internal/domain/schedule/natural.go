package schedule

import "strings"

// naturalCompare orders strings with embedded numbers by numeric value.
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ad, bd := isDigit(a[0]), isDigit(b[0])
		switch {
		case ad && bd:
			an, arest := leadingRun(a, true)
			bn, brest := leadingRun(b, true)
			if c := compareDigits(an, bn); c != 0 {
				return c
			}
			a, b = arest, brest
		case !ad && !bd:
			as, arest := leadingRun(a, false)
			bs, brest := leadingRun(b, false)
			if c := strings.Compare(as, bs); c != 0 {
				return c
			}
			a, b = arest, brest
		case ad:
			return -1
		default:
			return 1
		}
	}
	return len(a) - len(b)
}

func leadingRun(s string, digits bool) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
