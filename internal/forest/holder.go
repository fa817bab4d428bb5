package forest

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ErrNoModel is returned by a Holder that has never been given a model
var ErrNoModel = errors.New("forest: no model loaded")

// Holder keeps the active model and allows it to be swapped while requests
// are in flight.
type Holder struct {
	current atomic.Pointer[Model]
	reloads atomic.Uint64
}

// NewHolder creates a holder with an optional initial model
func NewHolder(m *Model) *Holder {
	h := &Holder{}
	if m != nil {
		h.current.Store(m)
	}
	return h
}

// Get returns the active model
func (h *Holder) Get() (*Model, error) {
	m := h.current.Load()
	if m == nil {
		return nil, ErrNoModel
	}
	return m, nil
}

// Swap activates m and returns the previously active model
func (h *Holder) Swap(m *Model) *Model {
	h.reloads.Add(1)
	return h.current.Swap(m)
}

// Reloads counts the swaps since creation
func (h *Holder) Reloads() uint64 {
	return h.reloads.Load()
}

// Predict evaluates the frame on the active model
func (h *Holder) Predict(frame Frame) ([]float64, error) {
	m, err := h.Get()
	if err != nil {
		return nil, err
	}
	return m.Predict(frame)
}

// Watch reloads the artifact at path whenever it is written or replaced and
// calls onChange with the new model. The parent directory is watched so
// atomic renames are seen. A failed reload is logged and the previous model
// stays active. Watch runs until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Model)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log.Info().Str("path", target).Msg("Watching model artifact")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			m, err := Load(target)
			if err != nil {
				log.Error().Err(err).Str("path", target).Msg("Model reload failed, keeping previous model")
				continue
			}

			log.Info().Str("path", target).Int("trees", len(m.trees)).Msg("Model reloaded")
			onChange(m)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Model watcher error")
		}
	}
}
