package fragment

import "sort"

// Kind discriminates the fragment variants emitted by page extractors.
type Kind int

const (
	// KindText is plain extracted text.
	KindText Kind = iota
	// KindTable is a table already rendered as Markdown.
	KindTable
	// KindImage is a placeholder resolved to OCR text during assembly.
	KindImage
)

// Fragment is one ordered piece of a page's output. The order key is
// assigned by the extractor and is only meaningful within a single page.
type Fragment struct {
	Kind     Kind
	Content  string // text or Markdown table
	ImageRef string // on-disk image path for KindImage
	Order    int
}

// Text returns a text fragment with the given order key.
func Text(order int, content string) Fragment {
	return Fragment{Kind: KindText, Content: content, Order: order}
}

// Table returns a Markdown-table fragment with the given order key.
func Table(order int, markdown string) Fragment {
	return Fragment{Kind: KindTable, Content: markdown, Order: order}
}

// ImagePlaceholder returns an image-placeholder fragment referencing an
// on-disk image owned by the request's temp directory.
func ImagePlaceholder(order int, imageRef string) Fragment {
	return Fragment{Kind: KindImage, ImageRef: imageRef, Order: order}
}

// PageResult holds the ordered output of one page or slide.
// Every KindImage fragment's ref appears in ImageRefs and vice versa.
type PageResult struct {
	PageIndex int
	Fragments []Fragment
	ImageRefs []string
}

// SortFragments orders the page's fragments by their order key.
// The sort is stable so fragments sharing a key keep extractor order.
func (p *PageResult) SortFragments() {
	sort.SliceStable(p.Fragments, func(i, j int) bool {
		return p.Fragments[i].Order < p.Fragments[j].Order
	})
}

// TableCount returns the number of table fragments on the page.
func (p *PageResult) TableCount() int {
	n := 0
	for _, f := range p.Fragments {
		if f.Kind == KindTable {
			n++
		}
	}
	return n
}

// SortPages orders page results by page index.
func SortPages(pages []PageResult) {
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageIndex < pages[j].PageIndex
	})
}
