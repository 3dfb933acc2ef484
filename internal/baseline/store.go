package baseline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/sizewatch/internal/sizelimit"
)

const (
	// RecordVersion is the record format written by Save.
	RecordVersion = 1

	// FileName is the name of the record inside an artifact or bucket prefix.
	FileName = "size-limit-results.json"

	// DefaultArtifactName is the Actions artifact holding the record.
	DefaultArtifactName = "size-limit-action"
)

// ErrNotFound is returned by a Channel when no record exists for a key.
var ErrNotFound = errors.New("baseline not found")

// Key identifies a baseline.
type Key struct {
	Branch   string `json:"branch"`
	Workflow string `json:"workflow"`
}

func (k Key) String() string {
	return k.Branch + "/" + k.Workflow
}

// Record is the persisted form of a baseline.
type Record struct {
	Version   int              `json:"version" yaml:"version"`
	Branch    string           `json:"branch" yaml:"branch"`
	Workflow  string           `json:"workflow" yaml:"workflow"`
	CreatedAt time.Time        `json:"createdAt" yaml:"createdAt"`
	Entries   sizelimit.Report `json:"entries" yaml:"entries"`
}

// Channel moves opaque record bytes to and from storage. Get returns an
// error matching ErrNotFound when nothing is stored under key.
type Channel interface {
	Put(ctx context.Context, key Key, data []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
}

// Store saves and loads baselines through a Channel.
type Store struct {
	ch  Channel
	log logrus.FieldLogger
	now func() time.Time
}

// NewStore creates a Store. A nil logger discards output.
func NewStore(ch Channel, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Store{ch: ch, log: log, now: time.Now}
}

// Save persists report as the baseline for key, replacing any previous one.
func (s *Store) Save(ctx context.Context, report sizelimit.Report, key Key) error {
	data, err := s.encode(report, key)
	if err != nil {
		return err
	}
	if err := s.ch.Put(ctx, key, data); err != nil {
		return fmt.Errorf("saving baseline for %s: %w", key, err)
	}
	s.log.WithField("entries", report.Len()).Debugf("saved baseline for %s", key)
	return nil
}

// Load returns the baseline for key. The boolean is false when no usable
// baseline exists.
func (s *Store) Load(ctx context.Context, key Key) (sizelimit.Report, bool) {
	rec, ok := s.LoadRecord(ctx, key)
	if !ok {
		return sizelimit.Report{}, false
	}
	return rec.Entries, true
}

// LoadRecord is Load but returns the whole record.
func (s *Store) LoadRecord(ctx context.Context, key Key) (Record, bool) {
	data, err := s.ch.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Debugf("no baseline stored for %s", key)
		} else {
			s.log.WithError(err).Warn("unable to find base results")
		}
		return Record{}, false
	}
	rec, err := decode(data, key)
	if err != nil {
		s.log.WithError(err).Warn("unable to find base results")
		return Record{}, false
	}
	return rec, true
}

func (s *Store) encode(report sizelimit.Report, key Key) ([]byte, error) {
	rec := Record{
		Version:   RecordVersion,
		Branch:    key.Branch,
		Workflow:  key.Workflow,
		CreatedAt: s.now().UTC(),
		Entries:   report,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding baseline: %w", err)
	}
	return data, nil
}

// decode parses stored bytes. A bare JSON array is taken as raw tool output
// and is accepted for any key.
func decode(data []byte, key Key) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		report, err := sizelimit.Parse(string(trimmed))
		if err != nil {
			return Record{}, fmt.Errorf("corrupt baseline: %w", err)
		}
		return Record{Branch: key.Branch, Workflow: key.Workflow, Entries: report}, nil
	}

	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return Record{}, fmt.Errorf("corrupt baseline: %w", err)
	}
	if rec.Version != RecordVersion {
		return Record{}, fmt.Errorf("unsupported baseline version %d", rec.Version)
	}
	if rec.Branch != key.Branch || rec.Workflow != key.Workflow {
		return Record{}, fmt.Errorf("baseline was recorded for %s/%s, want %s", rec.Branch, rec.Workflow, key)
	}
	return rec, nil
}
