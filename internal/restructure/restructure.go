package restructure

import (
	"fmt"

	"hpsgateway/pkg/types"
)

// Options selects the passes Restructure runs.
type Options struct {
	MergeTables   bool
	RelevelTitles bool
	Concatenate   bool
}

// DefaultOptions merges tables and re-levels titles without concatenating.
func DefaultOptions() Options {
	return Options{MergeTables: true, RelevelTitles: true}
}

// Document is the output of Restructure.
type Document struct {
	// Pages in input order, same shape as the input.
	Pages []types.LayoutPage
	// Nil unless Options.Concatenate was set.
	Combined *types.CombinedResult
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

// Restructure runs the selected passes over pages. The input is not modified.
func Restructure(pages []types.LayoutPage, opts Options) (*Document, error) {
	if err := Validate(pages); err != nil {
		return nil, err
	}
	out := make([]types.LayoutPage, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	if len(out) > 1 && (opts.MergeTables || opts.RelevelTitles) {
		blocks := make([][]types.Block, len(out))
		for i := range out {
			blocks[i] = out[i].PrunedResult.ParsingResList
		}
		if opts.MergeTables {
			blocks = mergeTables(blocks)
		}
		if opts.RelevelTitles {
			relevelTitles(blocks)
		}
		for i := range out {
			out[i].PrunedResult.ParsingResList = blocks[i]
		}
	}
	doc := &Document{Pages: out}
	if opts.Concatenate {
		doc.Combined = concatenate(out)
	}
	return doc, nil
}

// Validate checks the fields Restructure depends on.
func Validate(pages []types.LayoutPage) error {
	if len(pages) == 0 {
		return &ValidationError{Field: "pages", Msg: "at least one page is required"}
	}
	for i, p := range pages {
		if p.PrunedResult == nil {
			return &ValidationError{Field: fmt.Sprintf("pages[%d].prunedResult", i), Msg: "field required"}
		}
		if p.PrunedResult.ParsingResList == nil {
			return &ValidationError{Field: fmt.Sprintf("pages[%d].prunedResult.parsing_res_list", i), Msg: "field required"}
		}
		for j, b := range p.PrunedResult.ParsingResList {
			if b.Label == "" {
				return &ValidationError{Field: fmt.Sprintf("pages[%d].prunedResult.parsing_res_list[%d].block_label", i, j), Msg: "field required"}
			}
		}
	}
	return nil
}
