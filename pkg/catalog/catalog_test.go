package catalog

import (
	"testing"

	"biblepace/pkg/domain"
)

func TestDefaultTotals(t *testing.T) {
	totals := Default().Totals()
	if totals.Old != 929 {
		t.Fatalf("old total = %d, want 929", totals.Old)
	}
	if totals.New != 260 {
		t.Fatalf("new total = %d, want 260", totals.New)
	}
	if totals.Bible != 1189 || totals.Old+totals.New != totals.Bible {
		t.Fatalf("bible total = %d, want 1189", totals.Bible)
	}
	if n := len(Books()); n != 66 {
		t.Fatalf("book count = %d, want 66", n)
	}
}

func TestBuildCumulativeEmpty(t *testing.T) {
	if got := BuildCumulative(nil); len(got) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(got))
	}
}

func TestBuildCumulativePrefixSums(t *testing.T) {
	list := []domain.Book{
		{ID: 1, Name: "a", ChapterCount: 3, Collection: domain.CollectionOld},
		{ID: 2, Name: "b", ChapterCount: 5, Collection: domain.CollectionNew},
		{ID: 3, Name: "c", ChapterCount: 2, Collection: domain.CollectionOld},
		{ID: 4, Name: "d", ChapterCount: 4, Collection: domain.CollectionNew},
	}
	got := BuildCumulative(list)
	want := []struct{ bible, old, new int }{
		{0, 0, 0},
		{3, 3, 0},
		{8, 3, 5},
		{10, 5, 5},
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.ID != list[i].ID {
			t.Fatalf("row %d id = %d, want %d", i, g.ID, list[i].ID)
		}
		if g.ChaptersBeforeInBible != w.bible || g.ChaptersBeforeInOld != w.old || g.ChaptersBeforeInNew != w.new {
			t.Fatalf("row %d offsets = (%d,%d,%d), want (%d,%d,%d)", i,
				g.ChaptersBeforeInBible, g.ChaptersBeforeInOld, g.ChaptersBeforeInNew, w.bible, w.old, w.new)
		}
	}
}

func TestCumulativeInvariants(t *testing.T) {
	rows := Default().Cumulative()
	prev := domain.CumulativeBook{}
	for i, b := range rows {
		if b.ChaptersBeforeInBible != b.ChaptersBeforeInOld+b.ChaptersBeforeInNew {
			t.Fatalf("%s: bible offset %d != old %d + new %d", b.Name,
				b.ChaptersBeforeInBible, b.ChaptersBeforeInOld, b.ChaptersBeforeInNew)
		}
		if i > 0 && (b.ChaptersBeforeInBible < prev.ChaptersBeforeInBible ||
			b.ChaptersBeforeInOld < prev.ChaptersBeforeInOld ||
			b.ChaptersBeforeInNew < prev.ChaptersBeforeInNew) {
			t.Fatalf("%s: offsets decreased", b.Name)
		}
		prev = b
	}
	matthew, ok := Default().Find(40)
	if !ok {
		t.Fatalf("book 40 missing")
	}
	if matthew.ChaptersBeforeInBible != 929 || matthew.ChaptersBeforeInNew != 0 {
		t.Fatalf("matthew offsets = %+v", matthew)
	}
}

func TestGroupedAndChapters(t *testing.T) {
	groups := Default().Grouped()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if len(groups[0].Books) != 39 || groups[0].Label != "Ancien Testament" {
		t.Fatalf("unexpected old group: %d books, label %q", len(groups[0].Books), groups[0].Label)
	}
	if len(groups[1].Books) != 27 || groups[1].Books[26].Name != "Apocalypse" {
		t.Fatalf("unexpected new group: %+v", groups[1].Books[len(groups[1].Books)-1])
	}

	chapters, ok := Default().Chapters(8)
	if !ok || len(chapters) != 4 || chapters[0] != 1 || chapters[3] != 4 {
		t.Fatalf("ruth chapters = %v", chapters)
	}
	if _, ok := Default().Chapters(67); ok {
		t.Fatalf("expected unknown book")
	}
}
