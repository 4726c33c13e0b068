package scope

import (
	"errors"

	"github.com/zeusync/kindstore/internal/core/observability/log"
)

// run invokes fn with mutations buffered. The outermost call applies the
// queued mutations in order once fn returns; if fn panics they are dropped.
func (s *Scope[E, K, S]) run(fn func()) (err error) {
	s.depth++
	done := false
	defer func() {
		s.depth--
		if s.depth > 0 {
			return
		}
		if !done {
			s.pending = nil
			return
		}
		err = s.flush()
	}()
	fn()
	done = true
	return nil
}

// flush applies the queued mutations in order. Each one runs with buffering
// on, so mutations queued by its change handlers wait for the next round.
func (s *Scope[E, K, S]) flush() (errs error) {
	done := false
	defer func() {
		if !done {
			s.pending = nil
		}
	}()
	for len(s.pending) > 0 {
		ops := s.pending
		s.pending = nil
		for _, op := range ops {
			if err := s.apply(op); err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}
	done = true
	if errs != nil {
		s.log.Error("buffered mutations failed", log.Error(errs))
	}
	return errs
}

func (s *Scope[E, K, S]) apply(op func() error) error {
	s.depth++
	defer func() { s.depth-- }()
	return op()
}

// With calls fn with a pointer to e's kind value. Mutations of the scope made
// inside fn are applied after the outermost With returns and their errors are
// returned by it.
func With[T any, E, K comparable, S any](s *Scope[E, K, S], e E, kind K, fn func(*T)) error {
	r, err := GetComponentRef[T](s, e, kind)
	if err != nil {
		return err
	}
	return s.run(func() { fn(r) })
}

// With2 is With for two components.
func With2[T1, T2 any, E, K comparable, S any](s *Scope[E, K, S], e E, k1, k2 K, fn func(*T1, *T2)) error {
	r1, err := GetComponentRef[T1](s, e, k1)
	if err != nil {
		return err
	}
	r2, err := GetComponentRef[T2](s, e, k2)
	if err != nil {
		return err
	}
	return s.run(func() { fn(r1, r2) })
}

// With3 is With for three components.
func With3[T1, T2, T3 any, E, K comparable, S any](s *Scope[E, K, S], e E, k1, k2, k3 K, fn func(*T1, *T2, *T3)) error {
	r1, err := GetComponentRef[T1](s, e, k1)
	if err != nil {
		return err
	}
	r2, err := GetComponentRef[T2](s, e, k2)
	if err != nil {
		return err
	}
	r3, err := GetComponentRef[T3](s, e, k3)
	if err != nil {
		return err
	}
	return s.run(func() { fn(r1, r2, r3) })
}

// With4 is With for four components.
func With4[T1, T2, T3, T4 any, E, K comparable, S any](s *Scope[E, K, S], e E, k1, k2, k3, k4 K, fn func(*T1, *T2, *T3, *T4)) error {
	r1, err := GetComponentRef[T1](s, e, k1)
	if err != nil {
		return err
	}
	r2, err := GetComponentRef[T2](s, e, k2)
	if err != nil {
		return err
	}
	r3, err := GetComponentRef[T3](s, e, k3)
	if err != nil {
		return err
	}
	r4, err := GetComponentRef[T4](s, e, k4)
	if err != nil {
		return err
	}
	return s.run(func() { fn(r1, r2, r3, r4) })
}

// With5 is With for five components.
func With5[T1, T2, T3, T4, T5 any, E, K comparable, S any](s *Scope[E, K, S], e E, k1, k2, k3, k4, k5 K, fn func(*T1, *T2, *T3, *T4, *T5)) error {
	r1, err := GetComponentRef[T1](s, e, k1)
	if err != nil {
		return err
	}
	r2, err := GetComponentRef[T2](s, e, k2)
	if err != nil {
		return err
	}
	r3, err := GetComponentRef[T3](s, e, k3)
	if err != nil {
		return err
	}
	r4, err := GetComponentRef[T4](s, e, k4)
	if err != nil {
		return err
	}
	r5, err := GetComponentRef[T5](s, e, k5)
	if err != nil {
		return err
	}
	return s.run(func() { fn(r1, r2, r3, r4, r5) })
}

// Batch runs fn with mutations buffered as With does, without component refs.
func (s *Scope[E, K, S]) Batch(fn func()) error {
	return s.run(fn)
}
