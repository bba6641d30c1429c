// internal/storage/archive/archiver.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/signalforge/internal/core"
	"go.uber.org/zap"
)

// Recorder counts archive writes
type Recorder interface {
	RecordArchiveWrite(ok bool)
}

// SignalArchiver writes produced signals to a Storage backend as JSON.
type SignalArchiver struct {
	storage  Storage
	logger   *zap.Logger
	recorder Recorder
}

// NewSignalArchiver creates an archiver over storage. recorder may be nil.
func NewSignalArchiver(storage Storage, logger *zap.Logger, recorder Recorder) *SignalArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalArchiver{storage: storage, logger: logger, recorder: recorder}
}

// signalRoot is the prefix every archived signal lives under
const signalRoot = "signals/"

// SignalPath returns signals/YYYY/MM/DD/<TICKER>-<id>.json for sig, dated in UTC.
func SignalPath(sig core.Signal) string {
	ts := sig.GeneratedAt.UTC()
	return fmt.Sprintf("%s%04d/%02d/%02d/%s-%s.json",
		signalRoot, ts.Year(), int(ts.Month()), ts.Day(), sig.Ticker, sig.ID)
}

// Save archives sig.
func (a *SignalArchiver) Save(ctx context.Context, sig core.Signal) error {
	path := SignalPath(sig)

	data, err := json.MarshalIndent(sig, "", "  ")
	if err == nil {
		err = a.storage.Write(ctx, path, data)
	}

	if a.recorder != nil {
		a.recorder.RecordArchiveWrite(err == nil)
	}
	if err != nil {
		return fmt.Errorf("archiving signal %s: %w", sig.ID, err)
	}

	a.logger.Debug("signal archived", zap.String("path", path))
	return nil
}

// Load reads back an archived signal. A missing path is ErrSignalNotFound.
func (a *SignalArchiver) Load(ctx context.Context, path string) (core.Signal, error) {
	var sig core.Signal
	ok, err := a.storage.Exists(ctx, path)
	if err != nil {
		return sig, err
	}
	if !ok {
		return sig, core.WrapError(core.ErrSignalNotFound, fmt.Errorf("no archived signal at %s", path))
	}

	data, err := a.storage.Read(ctx, path)
	if err != nil {
		return sig, err
	}
	if err := json.Unmarshal(data, &sig); err != nil {
		return sig, fmt.Errorf("decoding %s: %w", path, err)
	}
	return sig, nil
}

// Find locates an archived signal by id. The archive is keyed by date and
// ticker, so this lists every archived signal; it serves lookups that missed
// the in-memory store.
func (a *SignalArchiver) Find(ctx context.Context, id string) (core.Signal, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return core.Signal{}, core.WrapError(core.ErrSignalNotFound, fmt.Errorf("invalid signal id %q", id))
	}

	paths, err := a.storage.List(ctx, signalRoot)
	if err != nil {
		return core.Signal{}, fmt.Errorf("listing archive: %w", err)
	}

	suffix := "-" + id + ".json"
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return a.Load(ctx, p)
		}
	}
	return core.Signal{}, core.WrapError(core.ErrSignalNotFound, fmt.Errorf("signal %s not archived", id))
}
