// Package teams maps campaign team names to their numeric IDs.
package teams

import "strings"

// Entry pairs a team name with its ID.
type Entry struct {
	Name string
	ID   int
}

var defaultEntries = []Entry{
	{"그로스마케팅", 1},
	{"여행서비스TFT", 2},
	{"버티컬마케팅팀", 3},
	{"마케팅운영팀", 4},
	{"스포츠레저팀", 5},
	{"패션팀", 6},
	{"브랜드뷰티팀", 7},
	{"리빙팀", 8},
	{"식품팀", 9},
	{"유아동패션팀", 10},
	{"L.TOWN팀", 11},
	{"제휴서비스상품팀", 12},
	{"b tft", 13},
	{"명품잡화팀", 14},
	{"브랜드패션팀", 15},
	{"B2B팀", 16},
	{"디지털가전팀", 17},
}

// Table is an ordered name-to-ID mapping. It is built once at wiring time
// and injected into everything that resolves team names, so a deployment
// can carry its own roster without code edits.
type Table struct {
	entries []Entry
}

// New builds a Table from the given entries, preserving their order.
func New(entries []Entry) *Table {
	t := &Table{entries: make([]Entry, len(entries))}
	copy(t.entries, entries)
	return t
}

// Default returns a Table seeded with the standard deployment roster.
func Default() *Table {
	return New(defaultEntries)
}

// All returns the known teams in listing order.
func (t *Table) All() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup resolves a team name to its ID. Matching ignores surrounding
// whitespace and letter case for the Latin-named teams.
func (t *Table) Lookup(name string) (int, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 0, false
	}
	for _, e := range t.entries {
		if strings.ToLower(e.Name) == needle {
			return e.ID, true
		}
	}
	return 0, false
}

// Name returns the team name for an ID, or "" when unknown.
func (t *Table) Name(id int) string {
	for _, e := range t.entries {
		if e.ID == id {
			return e.Name
		}
	}
	return ""
}
