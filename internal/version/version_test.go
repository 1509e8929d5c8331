package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		commit   string
		date     string
		contains []string
		excludes []string
	}{
		{
			name:     "development build",
			commit:   "unknown",
			date:     "unknown",
			contains: []string{"kquant dev"},
			excludes: []string{"commit"},
		},
		{
			name:     "release build",
			commit:   "0123456789abcdef",
			date:     "2025-01-02T03:04:05Z",
			contains: []string{"commit 01234567,", "built 2025-01-02T03:04:05Z"},
			excludes: []string{"89abcdef"},
		},
		{
			name:     "short commit",
			commit:   "abc",
			date:     "2025-01-02T03:04:05Z",
			contains: []string{"commit abc,"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldCommit, oldDate := Commit, Date
			t.Cleanup(func() { Commit, Date = oldCommit, oldDate })
			Commit, Date = tt.commit, tt.date

			got := String()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("String() = %q, missing %q", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("String() = %q, should not contain %q", got, bad)
				}
			}
		})
	}
}

func TestShort(t *testing.T) {
	if Short() != Version {
		t.Errorf("Short() = %q, want %q", Short(), Version)
	}
}
