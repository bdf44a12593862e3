// Package pagerange parses user-typed page selectors ("1,3-5,8") into concrete
// page number lists, bounded by a document's page count.
package pagerange

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrDeletesAllPages is returned when a deletion selection covers every page.
var ErrDeletesAllPages = errors.New("cannot delete all pages, at least one page must remain")

// Parse converts a comma-separated selector into a sorted, de-duplicated list
// of 1-based page numbers. Tokens are either single integers or inclusive
// "start-end" ranges. Invalid tokens (non-numeric, inverted range, out of
// [1, totalPages]) are silently dropped, not errors.
func Parse(input string, totalPages int) []int {
	seen := make(map[int]bool)
	for _, tok := range strings.Split(input, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if start, end, ok := parseToken(tok); ok && start >= 1 && end <= totalPages && start <= end {
			for p := start; p <= end; p++ {
				seen[p] = true
			}
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func parseToken(tok string) (start, end int, ok bool) {
	if i := strings.Index(tok, "-"); i >= 0 {
		start, err1 := strconv.Atoi(strings.TrimSpace(tok[:i]))
		end, err2 := strconv.Atoi(strings.TrimSpace(tok[i+1:]))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return start, end, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}

// ValidateDeletion rejects a selection whose size equals the total page count:
// the output document must always retain at least one page.
func ValidateDeletion(selection []int, totalPages int) error {
	if len(selection) == 0 {
		return errors.New("no valid pages selected")
	}
	if len(selection) >= totalPages {
		return ErrDeletesAllPages
	}
	return nil
}

// Format renders a page list back to its canonical selector string.
func Format(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
