package links

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractTitles(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single link",
			text: "see [[Vacation Policy]] for details",
			want: []string{"Vacation Policy"},
		},
		{
			name: "multiple links in order",
			text: "[[Alpha]] then [[Beta]] then [[Alpha]] again",
			want: []string{"Alpha", "Beta"},
		},
		{
			name: "case-insensitive dedupe keeps first spelling",
			text: "[[Onboarding]] and [[ONBOARDING]]",
			want: []string{"Onboarding"},
		},
		{
			name: "whitespace trimmed",
			text: "[[  Security Policy  ]]",
			want: []string{"Security Policy"},
		},
		{
			name: "empty brackets ignored",
			text: "[[  ]] and [[Real]]",
			want: []string{"Real"},
		},
		{
			name: "nested brackets not matched",
			text: "[[a[[b]]c]]",
			want: []string{"b"},
		},
		{
			name: "no links",
			text: "plain text with [single] brackets",
			want: nil,
		},
		{
			name: "overlong title ignored",
			text: "[[" + strings.Repeat("x", 300) + "]] and [[Short]]",
			want: []string{"Short"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ExtractTitles(test.text)
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("ExtractTitles(%q) = %v, want %v", test.text, got, test.want)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		existing   []int64
		desired    []int64
		wantInsert []int64
		wantDelete []int64
	}{
		{
			name:       "no change",
			existing:   []int64{1, 2},
			desired:    []int64{2, 1},
			wantInsert: nil,
			wantDelete: nil,
		},
		{
			name:       "insert new",
			existing:   []int64{1},
			desired:    []int64{1, 3},
			wantInsert: []int64{3},
			wantDelete: nil,
		},
		{
			name:       "delete removed",
			existing:   []int64{1, 2},
			desired:    []int64{2},
			wantInsert: nil,
			wantDelete: []int64{1},
		},
		{
			name:       "full swap",
			existing:   []int64{1, 2},
			desired:    []int64{3, 4},
			wantInsert: []int64{3, 4},
			wantDelete: []int64{1, 2},
		},
		{
			name:       "desired duplicates collapse",
			existing:   nil,
			desired:    []int64{5, 5},
			wantInsert: []int64{5},
			wantDelete: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			insert, remove := Diff(test.existing, test.desired)
			if !reflect.DeepEqual(insert, test.wantInsert) {
				t.Errorf("toInsert = %v, want %v", insert, test.wantInsert)
			}
			if !reflect.DeepEqual(remove, test.wantDelete) {
				t.Errorf("toDelete = %v, want %v", remove, test.wantDelete)
			}
		})
	}
}
