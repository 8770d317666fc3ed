// Package identifier issues the public complaint identifiers of the form PREFIX-YYYY-NNNNNN.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultPrefix = "CMP"
	seqWidth      = 6
)

var ErrMalformed = errors.New("malformed complaint identifier")

// Sequencer hands out the next per-year sequence number. Implementations must never return the
// same value twice for a year, including under concurrent callers.
type Sequencer interface {
	Next(ctx context.Context, tx *gorm.DB, year int) (int64, error)
}

func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, seqWidth, seq)
}

// Parse splits an identifier into its year and sequence parts.
func Parse(id string) (int, int64, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] == "" {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	if len(parts[1]) != 4 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	if len(parts[2]) < seqWidth {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return year, seq, nil
}

type Generator struct {
	prefix    string
	sequencer Sequencer
}

func NewGenerator(prefix string, sequencer Sequencer) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix, sequencer: sequencer}
}

func (g *Generator) Prefix() string {
	return g.prefix
}

// Next allocates an identifier for the calendar year of now. tx should be the transaction that
// will insert the complaint so that a rollback also releases a table-backed sequence value.
func (g *Generator) Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	year := now.Year()
	seq, err := g.sequencer.Next(ctx, tx, year)
	if err != nil {
		return "", fmt.Errorf("allocate sequence for %d: %w", year, err)
	}
	return Format(g.prefix, year, seq), nil
}
