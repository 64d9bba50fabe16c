package guid

// Source is anything that can produce candidate identifiers.
type Source interface {
	Next() string
}

// Tracker holds the identifiers claimed during one run. The set only grows.
type Tracker struct {
	claimed map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{claimed: make(map[string]struct{})}
}

// Claim marks id as taken. Empty identifiers are ignored.
func (t *Tracker) Claim(id string) {
	if id == "" {
		return
	}
	t.claimed[id] = struct{}{}
}

// Claimed reports whether id is already taken
func (t *Tracker) Claimed(id string) bool {
	_, ok := t.claimed[id]
	return ok
}

// Len returns the number of claimed identifiers
func (t *Tracker) Len() int {
	return len(t.claimed)
}

// Fresh draws from src until it yields an unclaimed token, then claims it.
func (t *Tracker) Fresh(src Source) string {
	for {
		id := src.Next()
		if id != "" && !t.Claimed(id) {
			t.Claim(id)
			return id
		}
	}
}

// Fill gives every record whose identifier in column col is empty or missing a fresh
// one, in row order. Existing identifiers are claimed up front so a generated token
// cannot collide with one further down. It returns the number of identifiers generated.
func (t *Tracker) Fill(records [][]string, col int, src Source) int {
	for _, rec := range records {
		if col < len(rec) {
			t.Claim(rec[col])
		}
	}

	generated := 0
	for i := range records {
		for len(records[i]) <= col {
			records[i] = append(records[i], "")
		}
		if records[i][col] != "" {
			continue
		}
		records[i][col] = t.Fresh(src)
		generated++
	}
	return generated
}
