package keywords

import (
	"errors"
	"testing"
)

func TestDuplicateAcrossGroups(t *testing.T) {
	cases := []struct {
		name   string
		groups [][]string
		want   string
	}{
		{name: "clean", groups: [][]string{{"a", "b"}, {"c"}}, want: ""},
		{name: "duplicate", groups: [][]string{{"a", "b"}, {"b", "c"}}, want: "b"},
		{name: "case_insensitive", groups: [][]string{{"Blue Shirt"}, {"blue shirt"}}, want: "blue shirt"},
		{name: "within_one_group", groups: [][]string{{"a", "a"}}, want: "a"},
		{name: "empty", groups: nil, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DuplicateAcrossGroups(tc.groups); got != tc.want {
				t.Fatalf("DuplicateAcrossGroups=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestCheckPartition(t *testing.T) {
	cleaned := []string{"blue shirt", "red shoes", "green hat"}

	cases := []struct {
		name    string
		groups  [][]string
		wantErr error
	}{
		{
			name:    "complete",
			groups:  [][]string{{"blue shirt", "red shoes"}, {"green hat"}},
			wantErr: nil,
		},
		{
			name:    "missing_keyword",
			groups:  [][]string{{"blue shirt"}, {"green hat"}},
			wantErr: ErrIncompleteCoverage,
		},
		{
			name:    "unknown_phrase",
			groups:  [][]string{{"blue shirt", "red shoes"}, {"green hat", "purple scarf"}},
			wantErr: ErrIncompleteCoverage,
		},
		{
			name:    "duplicate_phrase",
			groups:  [][]string{{"blue shirt", "red shoes"}, {"green hat", "blue shirt"}},
			wantErr: ErrDuplicatePhrase,
		},
		{
			name:    "empty_plan_incomplete",
			groups:  [][]string{},
			wantErr: ErrIncompleteCoverage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPartition(tc.groups, cleaned)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckPartition err=%v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("CheckPartition err=%v, want %v", err, tc.wantErr)
			}
		})
	}
}
