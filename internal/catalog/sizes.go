package catalog

import (
	"cmp"
	"slices"
)

var sizeRank = map[string]int{
	"XS": 0, "S": 1, "M": 2, "L": 3, "XL": 4, "XXL": 5,
	"6": 6, "7": 7, "8": 8, "9": 9, "10": 10, "11": 11, "12": 12,
}

// SortSizes orders apparel sizes first, then shoe sizes 6 to 12, then any
// other size lexicographically.
func SortSizes(sizes []string) {
	slices.SortStableFunc(sizes, func(a, b string) int {
		ra, okA := sizeRank[a]
		rb, okB := sizeRank[b]
		switch {
		case okA && okB:
			return cmp.Compare(ra, rb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return cmp.Compare(a, b)
	})
}
