package app

import (
	"errors"
	"fmt"

	"github.com/dshills/tracewright/internal/debugger"
	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
)

// Job kinds submitted by the session.
const (
	KindLoadImage    = "load.image"
	KindLoadSnapshot = "load.snapshot"
	KindSaveSnapshot = "save.snapshot"
)

type loadedImage struct {
	img   *engine.Image
	hooks *engine.Hooks
	sm    *engine.SimManager
}

// LoadImage loads the image at path in a blocking job. On success the
// image, its hooks and a fresh simulation manager at the entry point replace
// the current ones. On failure an error notice is posted and the session is
// left as it was.
func (s *Session) LoadImage(path string) (*job.Job, error) {
	loader := s.loader
	j := job.New("Load "+path,
		func(jc *job.Context) (any, error) {
			jc.SetProgressText(5, "Reading image")
			img, err := loader.Load(jc.Context(), path)
			if err != nil {
				return nil, err
			}
			if jc.CancelRequested() {
				return nil, nil
			}
			jc.SetProgressText(50, "Compiling hooks")
			hooks, err := engine.HooksFromImage(img)
			if err != nil {
				return nil, &engine.LoadError{Path: path, Reason: "invalid hook", Err: err}
			}
			jc.SetProgressText(95, "Creating simulation manager")
			return &loadedImage{img: img, hooks: hooks, sm: engine.NewSimManagerAtEntry(img, hooks)}, nil
		},
		job.WithBlocking(),
		job.WithKind(KindLoadImage),
		job.OnFinish(func(j *job.Job) {
			switch j.Status() {
			case job.StatusCompleted:
				s.installImage(j.Result().(*loadedImage))
			case job.StatusCancelled:
				if r, ok := j.Result().(*loadedImage); ok && r != nil {
					r.hooks.Close()
				}
			case job.StatusFailed:
				s.loadFailed("Failed to load image", path, j.Err())
			}
		}),
	)
	if err := s.Jobs.Submit(j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Session) installImage(r *loadedImage) {
	if s.hooks != nil {
		s.retired = append(s.retired, s.hooks)
	}
	s.hooks = r.hooks
	s.Image.Set(r.img)
	s.SimManager.Set(r.sm)
	s.releaseHooks()
	s.logger.Info().
		Str("image", r.img.Name).
		Int("blocks", len(r.img.Blocks)).
		Int("hooks", len(r.img.Hooks)).
		Msg("image loaded")
	s.notify(SeverityInfo, "Image loaded", fmt.Sprintf("%s (%d blocks)", r.img.Name, len(r.img.Blocks)))
}

// releaseHooks closes replaced hook sets that no registered live debugger
// still steps through.
func (s *Session) releaseHooks() {
	inUse := make(map[*engine.Hooks]bool)
	for _, dbg := range s.Debuggers.Debuggers().Items() {
		if l, ok := dbg.(*debugger.Live); ok && l.Emulator() != nil {
			inUse[l.Emulator().Hooks()] = true
		}
	}
	kept := s.retired[:0]
	for _, h := range s.retired {
		if inUse[h] {
			kept = append(kept, h)
			continue
		}
		h.Close()
	}
	s.retired = kept
}

func (s *Session) loadFailed(title, path string, err error) {
	var le *engine.LoadError
	var ie *engine.IncompatibleStateError
	switch {
	case errors.As(err, &ie):
		s.notify(SeverityError, "Incompatible snapshot",
			fmt.Sprintf("%s was written by an incompatible version: %s", path, ie.Detail))
	case errors.As(err, &le):
		s.notify(SeverityError, title, le.Error())
	default:
		s.notify(SeverityError, title, (&OperationError{Op: "load", Target: path, Err: err}).Error())
	}
}

// LoadSnapshot restores simulation states from the snapshot at path in a
// blocking job. Incompatible snapshots post an error notice and change
// nothing.
func (s *Session) LoadSnapshot(path string) (*job.Job, error) {
	img := s.Image.Get()
	if img == nil {
		return nil, ErrNoImage
	}
	hooks := s.hooks

	j := job.New("Load snapshot "+path,
		func(jc *job.Context) (any, error) {
			jc.SetProgressText(5, "Reading snapshot")
			sm, err := engine.LoadSnapshotFile(path, img, hooks)
			if err != nil {
				return nil, err
			}
			jc.SetProgress(95)
			return sm, nil
		},
		job.WithBlocking(),
		job.WithKind(KindLoadSnapshot),
		job.OnFinish(func(j *job.Job) {
			switch j.Status() {
			case job.StatusCompleted:
				if s.Image.Get() != img {
					s.notify(SeverityWarning, "Snapshot discarded", "the image changed while the snapshot was loading")
					return
				}
				s.SimManager.Set(j.Result().(*engine.SimManager))
				s.notify(SeverityInfo, "Snapshot loaded", path)
			case job.StatusFailed:
				s.loadFailed("Failed to load snapshot", path, j.Err())
			}
		}),
	)
	if err := s.Jobs.Submit(j); err != nil {
		return nil, err
	}
	return j, nil
}

// SaveSnapshot writes a copy of the current simulation manager to path in
// a background job.
func (s *Session) SaveSnapshot(path string) (*job.Job, error) {
	sm := s.SimManager.Get()
	if sm == nil {
		return nil, ErrNoState
	}
	snapshot := sm.Clone()

	j := job.New("Save snapshot "+path,
		func(jc *job.Context) (any, error) {
			return nil, engine.SaveSnapshotFile(path, snapshot)
		},
		job.WithKind(KindSaveSnapshot),
		job.OnFinish(func(j *job.Job) {
			if j.Status() == job.StatusFailed {
				s.notify(SeverityError, "Failed to save snapshot", j.Err().Error())
			}
		}),
	)
	if err := s.Jobs.Submit(j); err != nil {
		return nil, err
	}
	return j, nil
}
