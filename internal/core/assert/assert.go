package assert

import (
	"fmt"

	"go.uber.org/zap"
)

// Checker reports invariant violations. In strict mode (development) a
// violation panics; otherwise it is logged and the caller skips the work.
type Checker struct {
	strict bool
	log    *zap.Logger
}

func NewChecker(strict bool, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{strict: strict, log: log}
}

// Violation records a broken invariant. Always returns false so call sites
// can write `return c.Violation(...)` in boolean guards.
func (c *Checker) Violation(msg string, fields ...zap.Field) bool {
	if c == nil {
		return false
	}
	if c.strict {
		panic(fmt.Sprintf("invariant violation: %s", msg))
	}
	c.log.Warn("invariant violation", append(fields, zap.String("what", msg))...)
	return false
}

func (c *Checker) Strict() bool { return c != nil && c.strict }
