package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortFragments(t *testing.T) {
	page := PageResult{
		PageIndex: 0,
		Fragments: []Fragment{
			ImagePlaceholder(5, "img_1.png"),
			Text(0, "intro"),
			Table(3, "| a |\n"),
			Text(1, "body"),
		},
	}
	page.SortFragments()

	assert.Equal(t, "intro", page.Fragments[0].Content)
	assert.Equal(t, "body", page.Fragments[1].Content)
	assert.Equal(t, KindTable, page.Fragments[2].Kind)
	assert.Equal(t, KindImage, page.Fragments[3].Kind)
}

func TestSortFragmentsStableOnTies(t *testing.T) {
	page := PageResult{
		Fragments: []Fragment{
			Text(1, "first"),
			Text(1, "second"),
			Text(0, "zeroth"),
		},
	}
	page.SortFragments()

	assert.Equal(t, "zeroth", page.Fragments[0].Content)
	assert.Equal(t, "first", page.Fragments[1].Content)
	assert.Equal(t, "second", page.Fragments[2].Content)
}

func TestTableCount(t *testing.T) {
	page := PageResult{
		Fragments: []Fragment{
			Text(0, "t"),
			Table(1, "| a |\n"),
			Table(2, "| b |\n"),
			ImagePlaceholder(3, "x.png"),
		},
	}
	assert.Equal(t, 2, page.TableCount())
}

func TestSortPages(t *testing.T) {
	pages := []PageResult{
		{PageIndex: 2},
		{PageIndex: 0},
		{PageIndex: 1},
	}
	SortPages(pages)

	assert.Equal(t, 0, pages[0].PageIndex)
	assert.Equal(t, 1, pages[1].PageIndex)
	assert.Equal(t, 2, pages[2].PageIndex)
}
