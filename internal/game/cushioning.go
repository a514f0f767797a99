/*
Package game
File: cushioning.go
Description:
    Flat lookup of seat block -> damage reduction factor, compiled once
    from the settings' cushioning entries. A block without an entry gets
    no cushioning.
*/

package game

import (
	"errors"
	"fmt"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/host"
)

var ErrInvalidCushion = errors.New("invalid cushioning entry")

// CushionKey formats the lookup key for a block type and subtype.
func CushionKey(typeID, subtypeID string) string {
	return typeID + "-" + subtypeID
}

// CushionCache maps CushionKey -> factor in [0,1).
type CushionCache struct {
	factors map[string]float64
}

// NewCushionCache compiles entries. Out-of-range factors and duplicate
// keys are skipped and reported in the returned error; the cache holds
// every valid entry either way.
func NewCushionCache(entries []config.CushionEntry) (*CushionCache, error) {
	c := &CushionCache{factors: make(map[string]float64, len(entries))}
	var errs []error
	for _, e := range entries {
		typeID := e.TypeID
		if typeID == "" {
			typeID = config.DefaultCushionTypeID
		}
		key := CushionKey(typeID, e.SubtypeID)
		if !(e.CushionFactor >= 0 && e.CushionFactor < 1) {
			errs = append(errs, fmt.Errorf("%w: %s factor %v outside [0,1)", ErrInvalidCushion, key, e.CushionFactor))
			continue
		}
		if _, dup := c.factors[key]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate %s", ErrInvalidCushion, key))
			continue
		}
		c.factors[key] = e.CushionFactor
	}
	return c, errors.Join(errs...)
}

// Factor returns the cushioning for a seat, 0 when unknown or nil.
func (c *CushionCache) Factor(b host.Block) float64 {
	if c == nil || b == nil {
		return 0
	}
	return c.factors[CushionKey(b.TypeID(), b.SubtypeID())]
}

func (c *CushionCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.factors)
}
