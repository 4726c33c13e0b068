package scope

import "github.com/google/uuid"

// Integer is the constraint of Sequential ids.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Sequential returns a factory handing out start, start+1, ...
func Sequential[E Integer](start E) func() E {
	next := start
	return func() E {
		e := next
		next++
		return e
	}
}

// UUIDs returns a factory of random (version 4) UUIDs.
func UUIDs() func() uuid.UUID {
	return uuid.New
}

// UUIDStrings returns a factory of random UUIDs in their string form.
func UUIDStrings() func() string {
	return uuid.NewString
}
