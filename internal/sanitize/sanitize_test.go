package sanitize

import "testing"

func TestToTitleCasePreservesAcronyms(t *testing.T) {
	got := ToTitleCase("a survey of llm safety and rlhf")
	want := "A Survey of LLM Safety and RLHF"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFilenameTruncatesAndAppendsExtension(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "word "
	}
	got := Filename(long, ".pdf")
	if len(got) > 150+len(".pdf") {
		t.Fatalf("filename too long: %d chars", len(got))
	}
	if got[len(got)-4:] != ".pdf" {
		t.Fatalf("missing extension: %q", got)
	}
}

func TestFilenameEmptyTitleFallsBack(t *testing.T) {
	if got := Filename("", ".pdf"); got != "Untitled Paper.pdf" {
		t.Fatalf("got %q", got)
	}
}

func TestFilenameStripsReservedChars(t *testing.T) {
	got := Filename(`A/B:C"D<E>F|G?H*I_J`, ".pdf")
	for _, c := range []byte{'<', '>', ':', '"', '/', '\\', '|', '?', '*', '_'} {
		for i := 0; i < len(got); i++ {
			if got[i] == c {
				t.Fatalf("reserved char %q present in %q", c, got)
			}
		}
	}
}
