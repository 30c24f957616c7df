package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestShortenFolder(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a/b/c/d", "b/c/d"},
		{"a/b", "a/b"},
		{`C:\Users\ada\course\Day1`, "ada/course/Day1"},
		{"/home/ada/course/Day2 [Loops]/", "ada/course/Day2 [Loops]"},
		{"a//b", "a//b"},
		{"", ""},
		{"x/y/z", "x/y/z"},
	}
	for _, c := range cases {
		if got := ShortenFolder(c.in); got != c.want {
			t.Fatalf("ShortenFolder(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	doc := ReportDocument{
		Levels: []Level{
			{Name: "", Folder: "", Tasks: nil},
			{Name: "Loops", Folder: "/c/Day2", Tasks: []Task{{Question: "", SolutionFile: "2.1.py"}, {Question: "q", SolutionFile: ""}}},
		},
	}
	err := doc.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	want := []string{
		"Skill name is required",
		"Level 1: Missing level name",
		"Level 1: Missing folder path",
		"Level 1: No tasks added",
		"Level 2 Task 1: Missing task question",
		"Level 2 Task 2: Missing solution file",
	}
	if len(ve.Problems) != len(want) {
		t.Fatalf("problems = %v", ve.Problems)
	}
	for i := range want {
		if ve.Problems[i] != want[i] {
			t.Fatalf("problem %d = %q, want %q", i, ve.Problems[i], want[i])
		}
	}
	if !strings.Contains(ve.Error(), "6 problems") {
		t.Fatalf("unexpected message: %s", ve.Error())
	}
}

func TestValidateWhitespaceSkillName(t *testing.T) {
	doc := ReportDocument{SkillName: "   ", Levels: []Level{{Name: "L", Folder: "f", Tasks: []Task{{Question: "q", SolutionFile: "s"}}}}}
	var ve *ValidationError
	if err := doc.Validate(); !errors.As(err, &ve) || len(ve.Problems) != 1 {
		t.Fatalf("expected only skill-name problem, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := ReportDocument{SkillName: "Go", Levels: []Level{{Name: "L1", Tasks: []Task{{Question: "q1"}}}}}
	c := doc.Clone()
	c.Levels[0].Name = "changed"
	c.Levels[0].Tasks[0].Question = "changed"
	if doc.Levels[0].Name != "L1" || doc.Levels[0].Tasks[0].Question != "q1" {
		t.Fatalf("clone shares state with original: %#v", doc)
	}
	if doc.TaskCount() != 1 || !(ReportDocument{AuthorRole: "x"}).HasAuthor() || (ReportDocument{}).HasAuthor() {
		t.Fatalf("helper mismatch")
	}
}
