package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
)

func TestParseSortMode(t *testing.T) {
	tests := map[string]SortMode{
		"":             SortDefault,
		"scripture":    SortScripture,
		"Alphabetical": SortAlphabetical,
		"newest":       SortNewest,
		"date":         SortNewest,
	}
	for input, want := range tests {
		got, err := ParseSortMode(input)
		if err != nil || got != want {
			t.Errorf("ParseSortMode(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseSortMode("random"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ParseSortMode(random) error = %v", err)
	}
}

func sortFixtures() []resource.Resource {
	return []resource.Resource{
		{ID: 1, Title: "beta", Chapter: resource.Int(3), VerseStart: resource.Int(5), PublishedYear: resource.Int(2001)},
		{ID: 2, Title: "Alpha", Chapter: resource.Int(3), VerseStart: resource.Int(1)},
		{ID: 3, Title: "gamma", PublishedYear: resource.Int(2020)},
		{ID: 4, Title: "Delta", Chapter: resource.Int(1), PublishedYear: resource.Int(2001)},
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		mode SortMode
		want []int64
	}{
		{SortDefault, []int64{1, 2, 3, 4}},
		{SortScripture, []int64{3, 4, 2, 1}},
		{SortAlphabetical, []int64{2, 1, 4, 3}},
		{SortNewest, []int64{3, 1, 4, 2}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			rs := sortFixtures()
			Sort(rs, tt.mode)
			if diff := cmp.Diff(tt.want, ids(rs)); diff != "" {
				t.Errorf("Sort(%q) (-want +got):\n%s", tt.mode, diff)
			}
		})
	}
}
