package restructure

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"hpsgateway/pkg/types"
)

// relevelTitles assigns every heading a document-wide level. Page-local depths
// are only compared with each other, never taken as absolute levels: a
// deeper heading opens one new level, an equal one continues the current
// level, a shallower one closes levels until the stack top is no deeper.
func relevelTitles(pages [][]types.Block) {
	var stack []int
	for p := range pages {
		for i := range pages[p] {
			b := &pages[p][i]
			if !b.IsTitle() {
				continue
			}
			b.TitleLevel = pushDepth(&stack, localDepth(*b))
		}
	}
}

// pushDepth places depth d on the running stack and returns the resulting
// 1-based level. The stack only ever grows by one entry per call, so the
// returned level is at most one more than the previous one.
func pushDepth(stack *[]int, d int) int {
	s := *stack
	for len(s) > 0 && s[len(s)-1] > d {
		s = s[:len(s)-1]
	}
	if len(s) == 0 || s[len(s)-1] < d {
		s = append(s, d)
	}
	*stack = s
	return len(s)
}

// localDepth is the heading depth the page itself implies: the backend's
// title_level when present, else 1 for document titles and 1 + numbering
// depth ("3" -> 2, "3.2" -> 3, unnumbered -> 2) for paragraph titles.
func localDepth(b types.Block) int {
	if b.TitleLevel > 0 {
		return b.TitleLevel
	}
	if b.Label == types.LabelDocTitle {
		return 1
	}
	n := numberingDepth(b.Content)
	if n == 0 {
		n = 1
	}
	return 1 + n
}

// numberingDepth counts the components of a leading section number such as
// "2.4.1". Full-width digits and dots are folded first.
func numberingDepth(title string) int {
	s := strings.TrimSpace(width.Fold.String(title))
	depth := 0
	for {
		j := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == 0 {
			break
		}
		depth++
		s = s[j:]
		if len(s) >= 2 && s[0] == '.' && s[1] >= '0' && s[1] <= '9' {
			s = s[1:]
			continue
		}
		break
	}
	if depth == 0 {
		return 0
	}
	// "3D Modeling" is not numbered: a section number is followed by a
	// separator or the end of the title.
	if s != "" {
		r := []rune(s)[0]
		if r != '.' && r != ')' && r != '、' && !unicode.IsSpace(r) {
			return 0
		}
	}
	return depth
}
