package types

import (
	"encoding/json"
	"reflect"
)

// Block labels emitted by the layout backend that the gateway interprets.
// Any other label is carried through untouched.
const (
	LabelDocTitle       = "doc_title"
	LabelParagraphTitle = "paragraph_title"
	LabelTable          = "table"
	LabelImage          = "image"
	LabelChart          = "chart"
	LabelSeal           = "seal"
	LabelHeader         = "header"
	LabelFooter         = "footer"
	LabelHeaderImage    = "header_image"
	LabelFooterImage    = "footer_image"
	LabelNumber         = "number"
	LabelAsideText      = "aside_text"
)

// Block is one layout element of a page (parsing_res_list entry).
// Keys the gateway does not model are kept in Extra and written back as-is.
type Block struct {
	Label   string
	Content string
	// x1, y1, x2, y2 in page pixels.
	BBox  []float64
	ID    *int
	Order *int
	// Heading depth; 0 when the backend did not provide one.
	TitleLevel int
	// Set on tables fused from a cross-page continuation.
	MergedTableID   string
	MergedFromPages []int
	Extra           map[string]json.RawMessage

	// orig holds the source bytes of the modeled keys present on input.
	orig map[string]json.RawMessage
}

var blockKeys = []string{keyLabel, keyContent, keyBBox, keyID, keyOrder, keyTitleLevel, keyMergedTableID, keyMergedFromPages}

const (
	keyLabel           = "block_label"
	keyContent         = "block_content"
	keyBBox            = "block_bbox"
	keyID              = "block_id"
	keyOrder           = "block_order"
	keyTitleLevel      = "title_level"
	keyMergedTableID   = "merged_table_id"
	keyMergedFromPages = "merged_from_pages"
	keyParsingResList  = "parsing_res_list"
)

// take decodes raw[key] into dst and removes it from raw. JSON nulls are
// left in raw so they round-trip unchanged.
func take(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return err
	}
	delete(raw, key)
	return nil
}

func (b *Block) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block{}
	for _, k := range blockKeys {
		if v, ok := raw[k]; ok && string(v) != "null" {
			if b.orig == nil {
				b.orig = make(map[string]json.RawMessage, len(blockKeys))
			}
			b.orig[k] = v
		}
	}
	if err := take(raw, keyLabel, &b.Label); err != nil {
		return err
	}
	if err := take(raw, keyContent, &b.Content); err != nil {
		return err
	}
	if err := take(raw, keyBBox, &b.BBox); err != nil {
		return err
	}
	if _, ok := raw[keyID]; ok && string(raw[keyID]) != "null" {
		b.ID = new(int)
		if err := take(raw, keyID, b.ID); err != nil {
			return err
		}
	}
	if _, ok := raw[keyOrder]; ok && string(raw[keyOrder]) != "null" {
		b.Order = new(int)
		if err := take(raw, keyOrder, b.Order); err != nil {
			return err
		}
	}
	if err := take(raw, keyTitleLevel, &b.TitleLevel); err != nil {
		return err
	}
	if err := take(raw, keyMergedTableID, &b.MergedTableID); err != nil {
		return err
	}
	if err := take(raw, keyMergedFromPages, &b.MergedFromPages); err != nil {
		return err
	}
	if len(raw) > 0 {
		b.Extra = raw
	}
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Extra)+8)
	for k, v := range b.Extra {
		out[k] = v
	}
	b.put(out, keyLabel, b.Label, b.Label != "")
	b.put(out, keyContent, b.Content, b.Content != "")
	b.put(out, keyBBox, b.BBox, b.BBox != nil)
	if b.ID != nil {
		b.put(out, keyID, *b.ID, true)
	}
	if b.Order != nil {
		b.put(out, keyOrder, *b.Order, true)
	}
	b.put(out, keyTitleLevel, b.TitleLevel, b.TitleLevel > 0)
	b.put(out, keyMergedTableID, b.MergedTableID, b.MergedTableID != "")
	b.put(out, keyMergedFromPages, b.MergedFromPages, len(b.MergedFromPages) > 0)
	return json.Marshal(out)
}

// put writes v under key when the key came with the input or set is true.
// An input value that still decodes to v is written back byte-for-byte.
func (b Block) put(out map[string]any, key string, v any, set bool) {
	o, had := b.orig[key]
	switch {
	case had && sameValue(o, v):
		out[key] = o
	case had || set:
		out[key] = v
	}
}

func sameValue(raw json.RawMessage, v any) bool {
	dst := reflect.New(reflect.TypeOf(v))
	if err := json.Unmarshal(raw, dst.Interface()); err != nil {
		return false
	}
	return reflect.DeepEqual(dst.Elem().Interface(), v)
}

// IsTitle reports whether the block is a heading.
func (b Block) IsTitle() bool {
	return b.Label == LabelDocTitle || b.Label == LabelParagraphTitle
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	c := b
	if b.BBox != nil {
		c.BBox = append(make([]float64, 0, len(b.BBox)), b.BBox...)
	}
	if b.ID != nil {
		v := *b.ID
		c.ID = &v
	}
	if b.Order != nil {
		v := *b.Order
		c.Order = &v
	}
	if b.MergedFromPages != nil {
		c.MergedFromPages = append(make([]int, 0, len(b.MergedFromPages)), b.MergedFromPages...)
	}
	c.Extra = cloneRaw(b.Extra)
	c.orig = cloneRaw(b.orig)
	return c
}

// PrunedResult is the per-page structured layout output. ParsingResList is
// nil when the key was absent from the input.
type PrunedResult struct {
	ParsingResList []Block
	Extra          map[string]json.RawMessage
}

func (p *PrunedResult) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PrunedResult{}
	if _, ok := raw[keyParsingResList]; ok && string(raw[keyParsingResList]) != "null" {
		p.ParsingResList = []Block{}
		if err := take(raw, keyParsingResList, &p.ParsingResList); err != nil {
			return err
		}
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

func (p PrunedResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	blocks := p.ParsingResList
	if blocks == nil {
		blocks = []Block{}
	}
	out[keyParsingResList] = blocks
	return json.Marshal(out)
}

// Clone returns a deep copy of p.
func (p PrunedResult) Clone() PrunedResult {
	c := PrunedResult{}
	if p.ParsingResList != nil {
		c.ParsingResList = make([]Block, len(p.ParsingResList))
		for i, b := range p.ParsingResList {
			c.ParsingResList[i] = b.Clone()
		}
	}
	c.Extra = cloneRaw(p.Extra)
	return c
}

// Clone returns a deep copy of p.
func (p LayoutPage) Clone() LayoutPage {
	c := LayoutPage{InputImage: p.InputImage}
	if p.PrunedResult != nil {
		pr := p.PrunedResult.Clone()
		c.PrunedResult = &pr
	}
	if p.Markdown != nil {
		md := *p.Markdown
		md.Images = cloneStrings(p.Markdown.Images)
		c.Markdown = &md
	}
	c.MarkdownImages = cloneStrings(p.MarkdownImages)
	c.OutputImages = cloneStrings(p.OutputImages)
	c.Extra = cloneRaw(p.Extra)
	return c
}

// layoutPageFields mirrors LayoutPage without its methods.
type layoutPageFields struct {
	PrunedResult   *PrunedResult     `json:"prunedResult"`
	Markdown       *Markdown         `json:"markdown"`
	MarkdownImages map[string]string `json:"markdownImages"`
	OutputImages   map[string]string `json:"outputImages"`
	InputImage     *string           `json:"inputImage"`
}

var layoutPageKeys = []string{"prunedResult", "markdown", "markdownImages", "outputImages", "inputImage"}

func (p *LayoutPage) UnmarshalJSON(data []byte) error {
	var f layoutPageFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range layoutPageKeys {
		delete(raw, k)
	}
	*p = LayoutPage{
		PrunedResult:   f.PrunedResult,
		Markdown:       f.Markdown,
		MarkdownImages: f.MarkdownImages,
		OutputImages:   f.OutputImages,
	}
	if f.InputImage != nil {
		p.InputImage = *f.InputImage
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// MarshalJSON writes image maps whenever they are non-nil, so an empty map
// on input stays an empty object on output.
func (p LayoutPage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["prunedResult"] = p.PrunedResult
	if p.Markdown != nil {
		out["markdown"] = p.Markdown
	}
	if p.MarkdownImages != nil {
		out["markdownImages"] = p.MarkdownImages
	}
	if p.OutputImages != nil {
		out["outputImages"] = p.OutputImages
	}
	if p.InputImage != "" {
		out["inputImage"] = p.InputImage
	}
	return json.Marshal(out)
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
