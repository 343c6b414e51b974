package exclusion

import "testing"

func TestKeywordFilterExcluded(t *testing.T) {
	f := NewKeywordFilter(nil)

	tests := []struct {
		title string
		want  bool
	}{
		{"Senior Software Engineer", true},
		{"Software Engineer, Cardiology Systems", true},
		{"DevOps Lead", true},
		{"Database Administrator", true},
		{"Registered Nurse", false},
		{"Clinical Data Analyst", false},
		{"Practice Manager", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := f.Excluded(tt.title, ""); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestKeywordFilterCaseInsensitive(t *testing.T) {
	f := NewKeywordFilter([]string{"Platform Engineer"})

	if !f.Excluded("senior PLATFORM engineer", "") {
		t.Error("mixed-case title should match a mixed-case keyword")
	}
	if f.Excluded("Platform Strategy Lead", "") {
		t.Error("partial keyword overlap should not match")
	}
}

func TestKeywordFilterCustomList(t *testing.T) {
	f := NewKeywordFilter([]string{"intern"})

	if !f.Excluded("Marketing Intern", "") {
		t.Error("custom keyword should match")
	}
	if f.Excluded("Software Engineer", "") {
		t.Error("default keywords should not apply when a custom list is given")
	}
}

func TestKeywordFilterIgnoresDescription(t *testing.T) {
	f := NewKeywordFilter(nil)
	if f.Excluded("Registered Nurse", "works with the devops team") {
		t.Error("description must not trigger exclusion")
	}
}
