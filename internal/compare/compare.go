package compare

import (
	"math"

	"github.com/dshills/sizewatch/internal/sizelimit"
)

// Status classifies a bundle across the two reports.
type Status string

const (
	StatusAdded     Status = "added"
	StatusRemoved   Status = "removed"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
)

// Comparison is the delta for one bundle name. Nil fields are values that do
// not exist on one side or cannot be computed.
type Comparison struct {
	Name          string            `json:"name" yaml:"name"`
	Status        Status            `json:"status" yaml:"status"`
	BaseSize      *int64            `json:"baseSize,omitempty" yaml:"baseSize,omitempty"`
	CurrentSize   *int64            `json:"currentSize,omitempty" yaml:"currentSize,omitempty"`
	AbsoluteDelta *int64            `json:"absoluteDelta,omitempty" yaml:"absoluteDelta,omitempty"`
	PercentDelta  *float64          `json:"percentDelta,omitempty" yaml:"percentDelta,omitempty"`
	BaseTiming    *sizelimit.Timing `json:"baseTiming,omitempty" yaml:"baseTiming,omitempty"`
	CurrentTiming *sizelimit.Timing `json:"currentTiming,omitempty" yaml:"currentTiming,omitempty"`
}

// Result is the outcome of comparing two reports.
type Result struct {
	Comparisons   []Comparison `json:"comparisons" yaml:"comparisons"`
	Significant   bool         `json:"significant" yaml:"significant"`
	BaseAvailable bool         `json:"baseAvailable" yaml:"baseAvailable"`
	Threshold     string       `json:"threshold" yaml:"threshold"`
}

// Compare matches base and current by name. A nil base means no baseline was
// available. Comparisons follow current order, then bundles only present in
// base, in base order.
func Compare(base *sizelimit.Report, current sizelimit.Report, threshold Threshold) Result {
	res := Result{
		BaseAvailable: base != nil,
		Threshold:     threshold.String(),
		Comparisons:   make([]Comparison, 0, current.Len()),
	}

	for _, cur := range current.Entries() {
		c := Comparison{
			Name:          cur.Name,
			CurrentSize:   int64Ptr(cur.Size),
			CurrentTiming: cur.Timing,
		}
		if base == nil {
			c.Status = StatusAdded
			res.Comparisons = append(res.Comparisons, c)
			continue
		}
		prev, ok := base.Lookup(cur.Name)
		if !ok {
			c.Status = StatusAdded
			c.AbsoluteDelta = int64Ptr(cur.Size)
			res.Comparisons = append(res.Comparisons, c)
			continue
		}
		c.BaseSize = int64Ptr(prev.Size)
		c.BaseTiming = prev.Timing
		delta := cur.Size - prev.Size
		c.AbsoluteDelta = int64Ptr(delta)
		if prev.Size != 0 {
			pct := float64(delta) / float64(prev.Size) * 100
			c.PercentDelta = &pct
		}
		if delta == 0 {
			c.Status = StatusUnchanged
		} else {
			c.Status = StatusChanged
		}
		res.Comparisons = append(res.Comparisons, c)
	}

	if base != nil {
		for _, prev := range base.Entries() {
			if _, ok := current.Lookup(prev.Name); ok {
				continue
			}
			res.Comparisons = append(res.Comparisons, Comparison{
				Name:       prev.Name,
				Status:     StatusRemoved,
				BaseSize:   int64Ptr(prev.Size),
				BaseTiming: prev.Timing,
			})
		}
	}

	res.Significant = significant(res.Comparisons, threshold)
	return res
}

func significant(comparisons []Comparison, threshold Threshold) bool {
	if !threshold.Defined() {
		return true
	}
	for _, c := range comparisons {
		switch c.Status {
		case StatusAdded, StatusRemoved:
			return true
		}
		if c.PercentDelta == nil {
			// zero-size baseline: any growth is unbounded
			if c.AbsoluteDelta != nil && *c.AbsoluteDelta != 0 {
				return true
			}
			continue
		}
		if math.Abs(*c.PercentDelta) >= threshold.Value() {
			return true
		}
	}
	return false
}

func int64Ptr(v int64) *int64 { return &v }
