package restructure

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2s"

	"hpsgateway/pkg/types"
)

// pageFurniture labels are running page decorations. They never interrupt a
// table continuation.
var pageFurniture = map[string]bool{
	types.LabelHeader:      true,
	types.LabelFooter:      true,
	types.LabelHeaderImage: true,
	types.LabelFooterImage: true,
	types.LabelNumber:      true,
	types.LabelAsideText:   true,
}

// openTable is a table that ends the most recently visited page and may
// continue onto the next one.
type openTable struct {
	page    int
	index   int
	table   *htmlTable
	sources []string
	pages   []int
}

// mergeTables fuses tables continued across page boundaries. The fused table
// lives where the first fragment was; later fragments are removed from their
// pages. Only the column count is compared: two adjacent fragments with equal
// width are merged even if their content differs.
func mergeTables(pages [][]types.Block) [][]types.Block {
	var open *openTable
	for p := range pages {
		blocks := pages[p]
		head, tail := firstContent(blocks), lastContent(blocks)
		removed := 0
		if head < 0 {
			open = nil
			continue
		}
		if open != nil && blocks[head].Label == types.LabelTable {
			if next, ok := parseTable(blocks[head].Content); ok && next.columns() == open.table.columns() {
				open.table.appendRows(next)
				open.sources = append(open.sources, source(p, head))
				open.pages = append(open.pages, p)
				if err := open.writeBack(pages); err == nil {
					pages[p] = removeBlock(blocks, head)
					if head == tail {
						// The fragment was all this page had; the table may go on.
						continue
					}
					blocks = pages[p]
					tail--
					removed = 1
				}
			}
		}
		open = nil
		if tail >= 0 && blocks[tail].Label == types.LabelTable {
			if t, ok := parseTable(blocks[tail].Content); ok {
				open = &openTable{
					page:    p,
					index:   tail,
					table:   t,
					sources: []string{source(p, tail+removed)},
					pages:   []int{p},
				}
			}
		}
	}
	return pages
}

// writeBack renders the fused table into its host block.
func (o *openTable) writeBack(pages [][]types.Block) error {
	content, err := o.table.render()
	if err != nil {
		return err
	}
	b := &pages[o.page][o.index]
	b.Content = content
	b.MergedTableID = mergedTableID(o.sources)
	b.MergedFromPages = append([]int(nil), o.pages...)
	return nil
}

// mergedTableID derives a stable id from the fragments' positions. The "mt-"
// prefix keeps it apart from the integer block ids of single-page tables.
func mergedTableID(sources []string) string {
	sum := blake2s.Sum256([]byte(strings.Join(sources, "|")))
	return "mt-" + hex.EncodeToString(sum[:])[:12]
}

func source(page, index int) string { return fmt.Sprintf("p%d/b%d", page, index) }

func firstContent(blocks []types.Block) int {
	for i, b := range blocks {
		if !pageFurniture[b.Label] {
			return i
		}
	}
	return -1
}

func lastContent(blocks []types.Block) int {
	for i := len(blocks) - 1; i >= 0; i-- {
		if !pageFurniture[blocks[i].Label] {
			return i
		}
	}
	return -1
}

func removeBlock(blocks []types.Block, i int) []types.Block {
	out := make([]types.Block, 0, len(blocks)-1)
	out = append(out, blocks[:i]...)
	return append(out, blocks[i+1:]...)
}
