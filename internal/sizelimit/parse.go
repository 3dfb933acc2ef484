package sizelimit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MalformedReportError reports tool output that is not a usable size-limit
// JSON report. Index is the offending array position, or -1 when the problem
// is with the document as a whole.
type MalformedReportError struct {
	Index  int
	Reason string
	Err    error
}

func (e *MalformedReportError) Error() string {
	msg := "malformed size-limit report"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: item %d", msg, e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedReportError) Unwrap() error { return e.Err }

// IsMalformed checks if err is, or wraps, a [*MalformedReportError].
func IsMalformed(err error) bool {
	var m *MalformedReportError
	return errors.As(err, &m)
}

type rawEntry struct {
	Name      *string         `json:"name"`
	Size      json.RawMessage `json:"size"`
	SizeLimit json.RawMessage `json:"sizeLimit"`
	Passed    *bool           `json:"passed"`
	Loading   json.RawMessage `json:"loading"`
	Running   json.RawMessage `json:"running"`
}

// Parse converts raw `size-limit --json` output into a Report.
func Parse(raw string) (Report, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return Report{}, &MalformedReportError{Index: -1, Reason: "output is empty"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Report{}, &MalformedReportError{Index: -1, Reason: "expected a JSON array, got " + typeErr.Value}
		}
		return Report{}, &MalformedReportError{Index: -1, Reason: "output is not valid JSON", Err: err}
	}
	if items == nil {
		return Report{}, &MalformedReportError{Index: -1, Reason: "expected a JSON array, got null"}
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		e, err := parseEntry(item)
		if err != nil {
			err.Index = i
			return Report{}, err
		}
		entries = append(entries, e)
	}
	return NewReport(entries)
}

func parseEntry(item json.RawMessage) (Entry, *MalformedReportError) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Entry{}, &MalformedReportError{Reason: "expected an object"}
	}
	var re rawEntry
	if err := json.Unmarshal(trimmed, &re); err != nil {
		return Entry{}, &MalformedReportError{Reason: "invalid entry", Err: err}
	}
	if re.Name == nil || *re.Name == "" {
		return Entry{}, &MalformedReportError{Reason: "missing name"}
	}

	e := Entry{Name: *re.Name, Passed: re.Passed}

	size, ok, err := number(re.Size)
	if err != nil {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: invalid size", e.Name), Err: err}
	}
	if !ok {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: missing size", e.Name)}
	}
	if size < 0 {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: negative size", e.Name)}
	}
	var inRange bool
	if e.Size, inRange = toInt64(size); !inRange {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: size out of range", e.Name)}
	}

	if limit, ok, err := number(re.SizeLimit); err != nil {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: invalid sizeLimit", e.Name), Err: err}
	} else if ok {
		v, inRange := toInt64(limit)
		if !inRange {
			return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: sizeLimit out of range", e.Name)}
		}
		e.Limit = &v
	}

	loading, hasLoading, err := number(re.Loading)
	if err != nil {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: invalid loading time", e.Name), Err: err}
	}
	running, hasRunning, err := number(re.Running)
	if err != nil {
		return Entry{}, &MalformedReportError{Reason: fmt.Sprintf("entry %q: invalid running time", e.Name), Err: err}
	}
	if hasLoading && hasRunning {
		e.Timing = &Timing{Loading: loading, Running: running, Total: loading + running}
	}
	return e, nil
}

// toInt64 rounds v to the nearest integer. ok is false when the result does
// not fit in an int64.
func toInt64(v float64) (int64, bool) {
	r := math.Round(v)
	if r >= 1<<63 || r < -(1<<63) {
		return 0, false
	}
	return int64(r), true
}

// number decodes a JSON number or numeric string. ok is false when the field
// is absent or null.
func number(raw json.RawMessage) (v float64, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false, err
		}
		text = strings.TrimSpace(text)
	}
	v, err = strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %s", string(raw))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("not a finite number: %s", string(raw))
	}
	return v, true, nil
}
