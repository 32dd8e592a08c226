package subtype

import (
	"math/rand/v2"
	"time"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/roster"
)

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the random source used for shuffles and draws.
func WithSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(src) }
}

// WithSeed seeds the random source. A zero seed keeps the time-based default.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

// Engine runs subtype assignment.
type Engine struct {
	rng *rand.Rand
}

// New returns an Engine; without options it is seeded from the clock.
func New(opts ...Option) *Engine {
	now := uint64(time.Now().UnixNano())
	e := &Engine{rng: rand.New(rand.NewPCG(now, now>>1))}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Result summarises one assignment run.
type Result struct {
	// Assigned is the number of cells that received a subtype.
	Assigned int `json:"assigned"`
	// Resets counts used-set exhaustions per category.
	Resets map[cell.Category]int `json:"resets"`
	// Usage counts how often each identity was handed out, per category.
	Usage map[cell.Category]map[string]int `json:"usage"`
}

func (r *Result) use(cat cell.Category, e Entry) {
	if r.Usage[cat] == nil {
		r.Usage[cat] = make(map[string]int)
	}
	r.Usage[cat][e.Identity()]++
	r.Assigned++
}

// scope is the (cycle, category) key of a used-set.
type scope struct {
	cycleID  uint
	category cell.Category
}

// tracker is the used-set of one scope, cleared when exhausted.
type tracker struct {
	used map[string]bool
}

type planned struct {
	cell    *cell.Cell
	subtype cell.Subtype
}

// Assign labels every worked cell of g from catalog. Leave and day-off cells
// get no subtype. The whole date range is planned before any cell is
// written, so on error the grid is unchanged.
func (e *Engine) Assign(cycleID uint, g *grid.Grid, catalog *Catalog) (Result, error) {
	res := Result{
		Resets: make(map[cell.Category]int),
		Usage:  make(map[cell.Category]map[string]int),
	}
	if catalog == nil {
		return res, roster.Errorf(roster.ErrInvalidCatalog, "no catalog loaded")
	}
	if g.Mode() != cell.ModePostSchedule {
		return res, roster.Errorf(roster.ErrPreconditionViolation, "grid has not been auto-scheduled")
	}

	trackers := make(map[scope]*tracker)
	var plan []planned
	for j, date := range g.Dates() {
		wd := Weekday(date)
		byCat := make(map[cell.Category][]grid.WorkCell)
		for _, wc := range g.WorkCells(j) {
			cat := wc.Cell.Category()
			byCat[cat] = append(byCat[cat], wc)
		}
		for _, cat := range cell.WorkCategories {
			cells := byCat[cat]
			if len(cells) == 0 {
				continue
			}
			entries := catalog.Group(wd, GroupFor(cat))
			if len(entries) == 0 {
				return Result{}, roster.Errorf(roster.ErrInvalidCatalog, "no %s entries for %s (weekday %d) with %d %s cells",
					GroupFor(cat), date.Format(grid.DateLayout), wd, len(cells), cat)
			}

			if len(cells) == len(entries) {
				for k, p := range e.rng.Perm(len(entries)) {
					plan = append(plan, planned{cells[k].Cell, label(entries[p], cat)})
					res.use(cat, entries[p])
				}
				continue
			}

			key := scope{cycleID, cat}
			tr := trackers[key]
			if tr == nil {
				tr = &tracker{used: make(map[string]bool)}
				trackers[key] = tr
			}
			for _, wc := range cells {
				entry, reset := e.drawUnused(entries, tr)
				if reset {
					res.Resets[cat]++
				}
				plan = append(plan, planned{wc.Cell, label(entry, cat)})
				res.use(cat, entry)
			}
		}
	}

	g.ClearSubtypes()
	for _, p := range plan {
		p.cell.SetSubtype(p.subtype)
	}
	return res, nil
}

// drawUnused picks uniformly among the entries of group not yet used in tr.
// When every entry has been used the set is cleared and the draw is taken
// from the full group; reset reports that this happened.
func (e *Engine) drawUnused(group []Entry, tr *tracker) (entry Entry, reset bool) {
	free := make([]Entry, 0, len(group))
	for _, en := range group {
		if !tr.used[en.Identity()] {
			free = append(free, en)
		}
	}
	if len(free) == 0 {
		clear(tr.used)
		free = group
		reset = true
	}
	entry = free[e.rng.IntN(len(free))]
	tr.used[entry.Identity()] = true
	return entry, reset
}

func label(e Entry, cat cell.Category) cell.Subtype {
	return cell.Subtype{Name: e.Name, Subname: e.Subname, Class: cat.Class()}
}

