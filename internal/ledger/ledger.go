// Package ledger tracks per-member required day counts for each shift
// category and detects which ones changed since they were last persisted.
package ledger

import (
	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/roster"
)

// MaxDays is the upper bound of a requirement; the lower bound is 0.
const MaxDays = 30

// Record is one requirement as loaded (Original) and as edited (Current).
type Record struct {
	Original int `json:"original"`
	Current  int `json:"current"`
}

// Requirement is an upstream required-days row.
type Requirement struct {
	Member   string
	Category cell.Category
	Days     int
}

// Change is one requirement whose current value differs from the persisted one.
type Change struct {
	Member   string        `json:"member"`
	Category cell.Category `json:"category"`
	Value    int           `json:"value"`
}

// ActualsSource supplies recounted actual work days per member.
type ActualsSource interface {
	Actuals(name string) cell.Counts
}

type key struct {
	member   string
	category cell.Category
}

// Ledger owns the requirement records of one cycle.
type Ledger struct {
	src     ActualsSource
	members []string
	records map[key]*Record
}

// New returns an empty ledger reading actuals from src.
func New(src ActualsSource) *Ledger {
	return &Ledger{src: src, records: make(map[key]*Record)}
}

// Load seeds Original and Current for every member and work category.
// Categories absent from reqs default to 0; rows for unknown members or
// non-work categories are ignored.
func (l *Ledger) Load(members []string, reqs []Requirement) {
	l.members = nil
	l.records = make(map[key]*Record)
	for _, m := range members {
		if _, ok := l.records[key{m, cell.CategoryMorning}]; ok {
			continue
		}
		l.members = append(l.members, m)
		for _, cat := range cell.WorkCategories {
			l.records[key{m, cat}] = &Record{}
		}
	}
	for _, r := range reqs {
		rec, ok := l.records[key{r.Member, r.Category}]
		if !ok {
			continue
		}
		v := clamp(r.Days)
		rec.Original, rec.Current = v, v
	}
}

// Adjust moves Current by delta, saturating at 0 and MaxDays, and returns
// the new value.
func (l *Ledger) Adjust(member string, cat cell.Category, delta int) (int, error) {
	rec, ok := l.records[key{member, cat}]
	if !ok {
		return 0, roster.Errorf(roster.ErrNotFound, "requirement %s/%s", member, cat)
	}
	rec.Current = clamp(rec.Current + delta)
	return rec.Current, nil
}

// Get returns the record of member and category.
func (l *Ledger) Get(member string, cat cell.Category) (Record, error) {
	rec, ok := l.records[key{member, cat}]
	if !ok {
		return Record{}, roster.Errorf(roster.ErrNotFound, "requirement %s/%s", member, cat)
	}
	return *rec, nil
}

// Members returns the members in load order.
func (l *Ledger) Members() []string { return append([]string(nil), l.members...) }

// Diff lists every requirement whose Current differs from Original, in
// member load order then A, B, C. An empty diff means nothing to save.
func (l *Ledger) Diff() []Change {
	var out []Change
	for _, m := range l.members {
		for _, cat := range cell.WorkCategories {
			rec := l.records[key{m, cat}]
			if rec.Current != rec.Original {
				out = append(out, Change{Member: m, Category: cat, Value: rec.Current})
			}
		}
	}
	return out
}

// Commit marks every Current value as persisted. Call it only after the
// diff was saved.
func (l *Ledger) Commit() {
	for _, rec := range l.records {
		rec.Original = rec.Current
	}
}

// ActualsFor returns the last recounted actual days of member. It does not
// trigger a recount.
func (l *Ledger) ActualsFor(member string) cell.Counts {
	if l.src == nil {
		return cell.Counts{}
	}
	return l.src.Actuals(member)
}

func clamp(v int) int {
	return max(0, min(v, MaxDays))
}
