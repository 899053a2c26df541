package util

import (
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"Vnet/pkg/logging"
)

const (
	// MoveRetries bounds how often a failed device move is retried.
	MoveRetries = 3
	moveDelay   = time.Millisecond
)

// ErrMoveExhausted means a device could not be moved into its isolation
// context within the bounded retry budget. Pair factories treat this as
// process-fatal: a link whose endpoint cannot be placed leaves the
// emulated network in an unusable state.
var ErrMoveExhausted = errors.New("interface move retries exhausted")

// MoveIntf issues moveCmd through run until it succeeds or the retry
// budget is spent. The underlying tools offer no structured exit-status
// contract here: empty command output is the sole success signal.
func MoveIntf(run func(cmd string) string, moveCmd, intf, nodeName string) error {
	err := retry.Do(
		func() error {
			if out := run(moveCmd); out != "" {
				return errors.Errorf("move %s to %s: %s", intf, nodeName, strings.TrimSpace(out))
			}
			return nil
		},
		retry.Attempts(MoveRetries+1),
		retry.Delay(moveDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logging.Errorf("gave up after %d retries: %v", MoveRetries, err)
		return errors.Wrapf(ErrMoveExhausted, "%v", err)
	}
	return nil
}
