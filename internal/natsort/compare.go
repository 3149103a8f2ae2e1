// Package natsort orders identifiers the way people read them: digit runs
// compare by value, so "item2" sorts before "item10".
package natsort

import "strings"

// Compare returns a negative number when a sorts before b, zero when they
// are identical and a positive number otherwise. Digit runs compare by
// numeric value, everything else by byte value (case-sensitive).
func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ei := digitRunEnd(a, i)
			ej := digitRunEnd(b, j)
			if c := compareDigits(a[i:ei], b[j:ej]); c != 0 {
				return c
			}
			i, j = ei, ej
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}

	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	// Same shape of runs but different spelling ("a01" vs "a1").
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b
func Less(a, b string) bool { return Compare(a, b) < 0 }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digitRunEnd(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i
}

// compareDigits orders two digit runs by value without converting them,
// so runs of any length are fine. Equal values with more leading zeros
// sort after the shorter spelling.
func compareDigits(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
