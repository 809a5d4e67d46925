// Package fuzzy finds the edit-distance-nearest candidates for a target
// string. It backs the "perhaps you meant" diagnostics produced when a
// receive export names a contract that does not exist in the module.
package fuzzy

// Distance computes the optimal string alignment distance (restricted
// Damerau-Levenshtein) between two strings. Insertions, deletions,
// substitutions and adjacent transpositions each cost one.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Three rolling rows: two back, one back, current.
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := prev2[j-2] + 1; t < d {
					d = t
				}
			}
			curr[j] = d
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return prev[lb]
}

// FindClosest returns every candidate at minimum distance from the target,
// in candidate iteration order. If any candidate matches the target exactly
// it returns (nil, false), signalling that no suggestion is needed. An empty
// candidate set yields an empty, non-nil slice.
func FindClosest(candidates []string, target string) ([]string, bool) {
	out := []string{}
	least := int(^uint(0) >> 1)
	for _, c := range candidates {
		d := Distance(c, target)
		switch {
		case d == 0:
			return nil, false
		case d < least:
			out = out[:0]
			out = append(out, c)
			least = d
		case d == least:
			out = append(out, c)
		}
	}
	return out, true
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
