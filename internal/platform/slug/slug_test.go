package slug

import "testing"

func TestMake(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Write the Report":     "write-the-report",
		"  call bank!! (10am)": "call-bank-10am",
		"":                     "task",
		"???":                  "task",
		"Draft intro for the quarterly planning document and send it": "draft-intro-for-the-quarterly-planning",
		"abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz":          "abcdefghijklmnopqrstuvwxyzabcdefghijklmn",
	}
	for input, want := range cases {
		if got := Make(input); got != want {
			t.Errorf("Make(%q) = %q, want %q", input, got, want)
		}
	}
}
