package sqlbuilder

import "testing"

func TestDollarPlaceholders(t *testing.T) {
	b := New(PlaceholderDollar)
	if got := b.Arg("x"); got != "$1" {
		t.Fatalf("first placeholder = %q", got)
	}
	if got := List(b, []string{"a", "b", "c"}); got != "$2, $3, $4" {
		t.Fatalf("list = %q", got)
	}
	if b.Len() != 4 {
		t.Fatalf("len = %d", b.Len())
	}
}

func TestQuestionPlaceholders(t *testing.T) {
	b := New(PlaceholderQuestion)
	if got := List(b, []int{1, 2}); got != "?, ?" {
		t.Fatalf("list = %q", got)
	}
	args := b.Args()
	if len(args) != 2 || args[0] != 1 || args[1] != 2 {
		t.Fatalf("args = %v", args)
	}
}
