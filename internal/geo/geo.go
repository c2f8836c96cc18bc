// Package geo acquires a best-effort device location fix with a bounded wait.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds how long Capture waits for a fix.
const DefaultTimeout = 10 * time.Second

var (
	ErrUnsupported      = errors.New("geolocation is not supported on this device")
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("timed out waiting for location fix")
)

// Coordinate is a position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether c is a finite coordinate within WGS84 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// ParseCoordinate parses "lat,lng" in decimal degrees.
func ParseCoordinate(s string) (Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid longitude %q", lngStr)
	}
	c := Coordinate{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate %s out of range", c)
	}
	return c, nil
}

// Locator is a source of position fixes.
type Locator interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (Coordinate, error)

// Locate calls f(ctx).
func (f LocatorFunc) Locate(ctx context.Context) (Coordinate, error) { return f(ctx) }

// Static returns a Locator that always reports c.
func Static(c Coordinate) Locator {
	return LocatorFunc(func(ctx context.Context) (Coordinate, error) {
		return c, nil
	})
}

// Capture asks loc for one fix and waits at most timeout for it. It resolves
// exactly once: either with a valid coordinate or with an error. It never
// retries. A nil Locator fails with ErrUnsupported; a timeout <= 0 uses
// DefaultTimeout.
func Capture(ctx context.Context, loc Locator, timeout time.Duration) (Coordinate, error) {
	if loc == nil {
		return Coordinate{}, ErrUnsupported
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		c   Coordinate
		err error
	}
	// Buffered so a late Locate does not leak the goroutine.
	ch := make(chan result, 1)
	go func() {
		c, err := loc.Locate(ctx)
		ch <- result{c: c, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return Coordinate{}, ErrTimeout
			}
			return Coordinate{}, r.err
		}
		if !r.c.Valid() {
			return Coordinate{}, fmt.Errorf("%w: invalid coordinate %s", ErrUnavailable, r.c)
		}
		return r.c, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Coordinate{}, ErrTimeout
		}
		return Coordinate{}, ctx.Err()
	}
}
