package screenshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResultSet maps image basenames to outcomes. Every discovered name is
// registered up front; each may be recorded exactly once. Discovery order is
// kept for rendering.
//
// A ResultSet is not safe for concurrent writers. The batch runner records
// from a single collector goroutine.
type ResultSet struct {
	names    []string
	outcomes map[string]Outcome
}

// NewResultSet registers the names of files. Duplicate basenames are rejected.
func NewResultSet(files []ImageFile) (*ResultSet, error) {
	rs := &ResultSet{
		names:    make([]string, 0, len(files)),
		outcomes: make(map[string]Outcome, len(files)),
	}
	for _, f := range files {
		if _, dup := rs.outcomes[f.Name]; dup {
			return nil, fmt.Errorf("duplicate image name %q", f.Name)
		}
		rs.outcomes[f.Name] = Outcome{}
		rs.names = append(rs.names, f.Name)
	}
	return rs, nil
}

// Record stores the outcome for name. It fails for unknown names, for unset
// outcomes, and for a second write to the same name.
func (r *ResultSet) Record(name string, o Outcome) error {
	prev, ok := r.outcomes[name]
	if !ok {
		return fmt.Errorf("record %q: not a discovered image", name)
	}
	if o.IsZero() {
		return fmt.Errorf("record %q: outcome is unset", name)
	}
	if !prev.IsZero() {
		return fmt.Errorf("record %q: outcome already recorded", name)
	}
	r.outcomes[name] = o
	return nil
}

// Len returns the number of registered names.
func (r *ResultSet) Len() int {
	return len(r.names)
}

// Recorded returns how many names have an outcome.
func (r *ResultSet) Recorded() int {
	n := 0
	for _, o := range r.outcomes {
		if !o.IsZero() {
			n++
		}
	}
	return n
}

// Names returns the registered names in discovery order.
func (r *ResultSet) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the recorded outcome for name.
func (r *ResultSet) Get(name string) (Outcome, bool) {
	o, ok := r.outcomes[name]
	if !ok || o.IsZero() {
		return Outcome{}, false
	}
	return o, true
}

// Missing returns registered names that have no outcome yet.
func (r *ResultSet) Missing() []string {
	var missing []string
	for _, name := range r.names {
		if r.outcomes[name].IsZero() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Each calls fn for every name in discovery order.
func (r *ResultSet) Each(fn func(name string, o Outcome)) {
	for _, name := range r.names {
		fn(name, r.outcomes[name])
	}
}

// MarshalJSON writes the set as a JSON object keyed by name, in discovery order.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := r.outcomes[name].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal outcome for %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
