package renderer

import (
	"errors"
	"fmt"
)

// Resources owns everything the pipeline allocates. Release frees in reverse
// acquisition order, so a constructor that fails half way can hand back
// exactly what it got.
type Resources struct {
	names    []string
	releases []func() error
}

// Acquire runs alloc and, on success, records release for the result. On
// failure nothing is recorded and the error is returned with the resource name.
func Acquire[T any](r *Resources, name string, alloc func() (T, error), release func(T) error) (T, error) {
	v, err := alloc()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	r.names = append(r.names, name)
	r.releases = append(r.releases, func() error { return release(v) })
	return v, nil
}

func (r *Resources) Len() int { return len(r.releases) }

// Release frees every held resource, newest first, and joins any errors.
// It is safe to call more than once.
func (r *Resources) Release() error {
	var errs []error
	for i := len(r.releases) - 1; i >= 0; i-- {
		if err := r.releases[i](); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.names[i], err))
		}
	}
	r.names, r.releases = nil, nil
	return errors.Join(errs...)
}
