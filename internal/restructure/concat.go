package restructure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"hpsgateway/pkg/types"
)

// concatenate joins pages into one rendering. Image keys are only unique
// within a page, so each key becomes page<i>_<key> and every reference in
// the page's block content is rewritten to match.
func concatenate(pages []types.LayoutPage) *types.CombinedResult {
	images := map[string]string{}
	var blocks []types.Block
	var parts []string
	for i, page := range pages {
		rename := make(map[string]string, len(page.Images()))
		for key, img := range page.Images() {
			nk := globalImageKey(i, key)
			rename[key] = nk
			images[nk] = img
		}
		for _, b := range page.PrunedResult.ParsingResList {
			c := b.Clone()
			c.Content = remapImageRefs(c.Content, rename)
			blocks = append(blocks, c)
			if md := renderBlock(c, rename); md != "" {
				parts = append(parts, md)
			}
		}
	}
	if blocks == nil {
		blocks = []types.Block{}
	}
	res := &types.CombinedResult{
		PrunedResult: types.PrunedResult{ParsingResList: blocks},
		Markdown:     types.Markdown{Text: strings.Join(parts, "\n\n")},
	}
	if len(images) > 0 {
		res.Markdown.Images = images
	}
	return res
}

func globalImageKey(page int, key string) string { return fmt.Sprintf("page%d_%s", page, key) }

// renderBlock renders one block as markdown. rename maps the page's original
// image keys to their global form.
func renderBlock(b types.Block, rename map[string]string) string {
	if pageFurniture[b.Label] {
		return ""
	}
	content := strings.TrimSpace(b.Content)
	if b.IsTitle() {
		if content == "" {
			return ""
		}
		level := b.TitleLevel
		if level <= 0 {
			level = localDepth(b)
		}
		if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + content
	}
	if content == "" {
		switch b.Label {
		case types.LabelImage, types.LabelChart, types.LabelSeal:
			if key := imageKeyForBBox(b, rename); key != "" {
				return fmt.Sprintf(`<div style="text-align: center;"><img src="%s" alt="Image" /></div>`, key)
			}
		}
		return ""
	}
	return content
}

// imageKeyForBBox finds the crop saved for a figure block. The backend names
// crops img_in_<label>_box_<x1>_<y1>_<x2>_<y2>.jpg.
func imageKeyForBBox(b types.Block, rename map[string]string) string {
	if len(b.BBox) != 4 {
		return ""
	}
	suffix := fmt.Sprintf("_box_%d_%d_%d_%d.", int(b.BBox[0]), int(b.BBox[1]), int(b.BBox[2]), int(b.BBox[3]))
	keys := make([]string, 0, len(rename))
	for k := range rename {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, suffix) {
			return rename[k]
		}
	}
	return ""
}

// remapImageRefs rewrites image references in content that name a key of
// rename. References are found in <img src> attributes and markdown image
// destinations; text that merely contains a key is left alone.
func remapImageRefs(content string, rename map[string]string) string {
	if content == "" || len(rename) == 0 {
		return content
	}
	refs := imageRefs(content)
	// Longest first so a key never clobbers a longer key it prefixes.
	sort.Slice(refs, func(i, j int) bool { return len(refs[i]) > len(refs[j]) })
	for _, ref := range refs {
		nk, ok := rename[ref]
		if !ok {
			continue
		}
		content = strings.NewReplacer(
			`"`+ref+`"`, `"`+nk+`"`,
			`'`+ref+`'`, `'`+nk+`'`,
			`(`+ref+`)`, `(`+nk+`)`,
			`(`+ref+` `, `(`+nk+` `,
			`=`+ref+` `, `=`+nk+` `,
			`=`+ref+`>`, `=`+nk+`>`,
		).Replace(content)
	}
	return content
}

// imageRefs lists the distinct image sources referenced by content.
func imageRefs(content string) []string {
	seen := map[string]bool{}
	var refs []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			refs = append(refs, s)
		}
	}

	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.Data != "img" {
			continue
		}
		for _, a := range tok.Attr {
			if a.Key == "src" {
				add(a.Val)
			}
		}
	}

	src := []byte(content)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			add(string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}
