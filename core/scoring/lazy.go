package scoring

import (
	"context"
	"sync"
)

// Lazy loads the underlying scorer on first use and shares it afterwards.
// A failed load is remembered; every later call returns the same error.
type Lazy struct {
	load   func() (Scorer, error)
	once   sync.Once
	scorer Scorer
	err    error
}

// NewLazy returns a holder that calls load at most once.
func NewLazy(load func() (Scorer, error)) *Lazy {
	return &Lazy{load: load}
}

// Get returns the loaded scorer.
func (l *Lazy) Get() (Scorer, error) {
	l.once.Do(func() {
		if l.load == nil {
			l.err = ErrArtifactNotLoaded
			return
		}
		l.scorer, l.err = l.load()
	})
	return l.scorer, l.err
}

// Preload forces the load so failures surface at startup.
func (l *Lazy) Preload() error {
	_, err := l.Get()
	return err
}

// Score implements Scorer.
func (l *Lazy) Score(ctx context.Context, features []float64) ([]float64, error) {
	s, err := l.Get()
	if err != nil {
		return nil, err
	}
	return s.Score(ctx, features)
}

// Preloader is implemented by scorers that can load eagerly.
type Preloader interface {
	Preload() error
}

// Preload loads s if it supports eager loading.
func Preload(s Scorer) error {
	if p, ok := s.(Preloader); ok {
		return p.Preload()
	}
	return nil
}
