package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/keshon/datastore"
	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/mind"
)

const (
	companionKey        = "companion"
	conversationHistory = 50
)

// Storage persists the companion's mood and recent conversation.
type Storage struct {
	ds *datastore.DataStore
}

// Record is what survives a restart.
type Record struct {
	Mood         mind.Mood           `json:"mood"`
	Conversation []mind.ShortMessage `json:"conversation"`
	SavedAt      time.Time           `json:"saved_at"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// Load returns the saved record. ok is false when nothing was saved yet.
func (s *Storage) Load() (rec *Record, ok bool, err error) {
	data, exists := s.ds.Get(companionKey)
	if !exists {
		return nil, false, nil
	}

	// values read back from disk are generic maps
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("error marshalling data: %w", err)
	}
	var r Record
	if err := json.Unmarshal(jsonData, &r); err != nil {
		return nil, false, fmt.Errorf("error unmarshalling to *Record: %w", err)
	}
	if len(r.Conversation) > conversationHistory {
		r.Conversation = r.Conversation[len(r.Conversation)-conversationHistory:]
	}
	return &r, true, nil
}

// Save stores rec and flushes it to disk.
func (s *Storage) Save(rec Record) error {
	if len(rec.Conversation) > conversationHistory {
		rec.Conversation = rec.Conversation[len(rec.Conversation)-conversationHistory:]
	}
	s.ds.Add(companionKey, rec)
	if err := s.ds.SaveToFile(); err != nil {
		return fmt.Errorf("save companion record: %w", err)
	}
	return nil
}

// Capture builds a record from the runner's current state.
func Capture(r *mind.Runner, now time.Time) Record {
	return Record{
		Mood:         r.State.Mood(),
		Conversation: r.Conversation.Turns(),
		SavedAt:      now,
	}
}

// Apply restores rec into the runner. Attempt ids restart at zero.
func Apply(r *mind.Runner, rec *Record) {
	r.State.Restore(rec.Mood)
	r.Conversation.Restore(rec.Conversation)
}

// Persister saves the runner periodically and once more on shutdown.
type Persister struct {
	store    *Storage
	runner   *mind.Runner
	interval time.Duration
	log      zerolog.Logger
}

func NewPersister(store *Storage, runner *mind.Runner, interval time.Duration, log zerolog.Logger) *Persister {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Persister{store: store, runner: runner, interval: interval, log: log}
}

// Restore loads the saved record into the runner, if any.
func (p *Persister) Restore() error {
	rec, ok, err := p.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		p.log.Info().Msg("no saved state, starting fresh")
		return nil
	}
	Apply(p.runner, rec)
	p.log.Info().
		Time("saved_at", rec.SavedAt).
		Int("turns", len(rec.Conversation)).
		Str("expression", string(rec.Mood.Expression)).
		Msg("restored saved state")
	return nil
}

// SaveNow writes the current state.
func (p *Persister) SaveNow() error {
	return p.store.Save(Capture(p.runner, time.Now()))
}

// Run saves every interval until ctx is done, then saves a final time.
func (p *Persister) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := p.SaveNow(); err != nil {
				p.log.Warn().Err(err).Msg("final save failed")
				return err
			}
			p.log.Info().Msg("state saved")
			return nil
		case <-ticker.C:
			if err := p.SaveNow(); err != nil {
				p.log.Warn().Err(err).Msg("periodic save failed")
			}
		}
	}
}
