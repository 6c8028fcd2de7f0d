package domain

import "testing"

func samplePlan() Plan {
	return Plan{Tasks: []Task{
		{ID: "a1b2c3", Slug: "write-report", Title: "Write report"},
		{ID: "a1ffff", Slug: "call-bank", Title: "Call bank", Done: true},
		{ID: "d4e5f6", Slug: "tidy-desk", Title: "Tidy desk"},
	}}
}

func TestFindResolvesIDSlugAndPrefix(t *testing.T) {
	plan := samplePlan()
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{ref: "a1b2c3", want: "a1b2c3", ok: true},
		{ref: "tidy-desk", want: "d4e5f6", ok: true},
		{ref: "d4", want: "d4e5f6", ok: true},
		{ref: "a1", ok: false},
		{ref: "  ", ok: false},
		{ref: "zz", ok: false},
	}
	for _, tc := range cases {
		got, ok := plan.Find(tc.ref)
		if ok != tc.ok {
			t.Fatalf("Find(%q) ok = %v, want %v", tc.ref, ok, tc.ok)
		}
		if ok && got.ID != tc.want {
			t.Fatalf("Find(%q) = %s, want %s", tc.ref, got.ID, tc.want)
		}
	}
}

func TestLeftoversSkipsDone(t *testing.T) {
	left := samplePlan().Leftovers()
	if len(left) != 2 || left[0].ID != "a1b2c3" || left[1].ID != "d4e5f6" {
		t.Fatalf("unexpected leftovers: %+v", left)
	}
}

func TestUniqueSlugAddsSuffix(t *testing.T) {
	plan := samplePlan()
	if got := plan.UniqueSlug("new-task"); got != "new-task" {
		t.Fatalf("expected free slug unchanged, got %s", got)
	}
	plan.Tasks = append(plan.Tasks, Task{Slug: "tidy-desk-2"})
	if got := plan.UniqueSlug("tidy-desk"); got != "tidy-desk-3" {
		t.Fatalf("expected tidy-desk-3, got %s", got)
	}
}
