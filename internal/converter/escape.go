package converter

import "strings"

// Guard prefixes a value that would be read as a formula with a single space.
func Guard(s string) string {
	if strings.HasPrefix(s, "=") {
		return " " + s
	}
	return s
}

// Unescape reverses Guard: a value whose leading spaces hide a "=" loses all of them,
// so a value guarded more than once comes back as a single formula string.
func Unescape(s string) string {
	if t := strings.TrimLeft(s, " "); t != s && strings.HasPrefix(t, "=") {
		return t
	}
	return s
}

// GuardGrid applies Guard to every cell in place
func GuardGrid(grid [][]string) {
	mapGrid(grid, Guard)
}

// UnescapeGrid applies Unescape to every cell in place
func UnescapeGrid(grid [][]string) {
	mapGrid(grid, Unescape)
}

func mapGrid(grid [][]string, fn func(string) string) {
	for i := range grid {
		for j := range grid[i] {
			grid[i][j] = fn(grid[i][j])
		}
	}
}

// QuoteReserved wraps an identifier containing the comment marker in double quotes
// so it cannot be mistaken for a comment or directive line.
func QuoteReserved(id string) string {
	if strings.Contains(id, "#") {
		return `"` + id + `"`
	}
	return id
}
