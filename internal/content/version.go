package content

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted version strings component-wise as
// integers. Missing trailing components count as 0, so "1.2" == "1.2.0".
// Returns -1, 0 or 1.
//
// A non-numeric component makes its side compare as less. A broken version
// string must never satisfy a minimum-version gate, so malformed input
// fails closed instead of erroring.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, aok := versionComponent(as, i)
		bv, bok := versionComponent(bs, i)

		if !aok {
			return -1
		}
		if !bok {
			return 1
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// versionComponent returns the i-th component as an int. Out-of-range
// components are 0; non-numeric components report !ok.
func versionComponent(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, true
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
