package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const SchemaVersion = 1

type Task struct {
	ID     string     `yaml:"id"`
	Slug   string     `yaml:"slug"`
	Title  string     `yaml:"title"`
	Note   string     `yaml:"note,omitempty"`
	Done   bool       `yaml:"done"`
	DoneAt *time.Time `yaml:"done_at,omitempty"`
}

// Plan is one day's brain dump.
type Plan struct {
	SchemaVersion int       `yaml:"schema_version"`
	Date          string    `yaml:"date"`
	CreatedAt     time.Time `yaml:"created_at"`
	UpdatedAt     time.Time `yaml:"updated_at"`
	Tasks         []Task    `yaml:"tasks"`
}

// Find resolves a task by id, slug or unique id prefix.
func (p Plan) Find(ref string) (Task, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Task{}, false
	}
	if task, ok := lo.Find(p.Tasks, func(t Task) bool { return t.ID == ref || t.Slug == ref }); ok {
		return task, true
	}
	matches := lo.Filter(p.Tasks, func(t Task, _ int) bool { return strings.HasPrefix(t.ID, ref) })
	if len(matches) == 1 {
		return matches[0], true
	}
	return Task{}, false
}

func (p Plan) Leftovers() []Task {
	return lo.Reject(p.Tasks, func(t Task, _ int) bool { return t.Done })
}

// UniqueSlug returns base, or base with a numeric suffix when it is taken.
func (p Plan) UniqueSlug(base string) string {
	taken := lo.SliceToMap(p.Tasks, func(t Task) (string, struct{}) { return t.Slug, struct{}{} })
	slug := base
	for n := 2; ; n++ {
		if _, ok := taken[slug]; !ok {
			return slug
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}
