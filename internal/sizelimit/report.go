package sizelimit

import (
	"encoding/json"
	"fmt"
)

// Timing holds the browser timing estimates size-limit reports when the
// time plugin is enabled. Values are seconds.
type Timing struct {
	Loading float64 `json:"loading" yaml:"loading"`
	Running float64 `json:"running" yaml:"running"`
	Total   float64 `json:"total" yaml:"total"`
}

// Entry is one measured bundle.
type Entry struct {
	Name   string  `json:"name" yaml:"name"`
	Size   int64   `json:"size" yaml:"size"`
	Limit  *int64  `json:"limit,omitempty" yaml:"limit,omitempty"`
	Passed *bool   `json:"passed,omitempty" yaml:"passed,omitempty"`
	Timing *Timing `json:"timing,omitempty" yaml:"timing,omitempty"`
}

func (e Entry) clone() Entry {
	out := e
	if e.Limit != nil {
		v := *e.Limit
		out.Limit = &v
	}
	if e.Passed != nil {
		v := *e.Passed
		out.Passed = &v
	}
	if e.Timing != nil {
		v := *e.Timing
		out.Timing = &v
	}
	return out
}

// Report is an ordered set of entries with unique names. The zero value is an
// empty report.
type Report struct {
	entries []Entry
	index   map[string]int
}

// NewReport builds a report from entries in the given order. Names must be
// non-empty and unique and sizes non-negative.
func NewReport(entries []Entry) (Report, error) {
	r := Report{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.Name == "" {
			return Report{}, &MalformedReportError{Index: i, Reason: "entry has no name"}
		}
		if e.Size < 0 {
			return Report{}, &MalformedReportError{Index: i, Reason: fmt.Sprintf("entry %q has negative size %d", e.Name, e.Size)}
		}
		if _, dup := r.index[e.Name]; dup {
			return Report{}, &MalformedReportError{Index: i, Reason: fmt.Sprintf("duplicate entry name %q", e.Name)}
		}
		r.index[e.Name] = len(r.entries)
		r.entries = append(r.entries, e.clone())
	}
	return r, nil
}

// Len returns the number of entries.
func (r Report) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the entries in tool output order.
func (r Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

// Names returns entry names in tool output order.
func (r Report) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the entry with the given name.
func (r Report) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i].clone(), true
}

// HasTiming reports whether the report is non-empty and every entry carries
// timing data.
func (r Report) HasTiming() bool {
	if len(r.entries) == 0 {
		return false
	}
	for _, e := range r.entries {
		if e.Timing == nil {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the report as an array of entries.
func (r Report) MarshalJSON() ([]byte, error) {
	if r.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.entries)
}

// UnmarshalJSON decodes an array of entries, applying the same validation as
// [NewReport].
func (r *Report) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	built, err := NewReport(entries)
	if err != nil {
		return err
	}
	*r = built
	return nil
}

// MarshalYAML encodes the report as a sequence of entries.
func (r Report) MarshalYAML() (interface{}, error) {
	return r.Entries(), nil
}
