package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/KaramelBytes/researchcrew-cli/internal/logging"
)

// backoff is the retry policy shared by the HTTP runtimes. A zero max leaves
// the doubling delay uncapped.
type backoff struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

// transient wraps an attempt error that is worth another try. A positive
// after is a server-requested delay and replaces the computed one.
type transient struct {
	err   error
	after time.Duration
}

func (t *transient) Error() string { return t.err.Error() }
func (t *transient) Unwrap() error { return t.err }

// settle strips the transient marker for callers that do not retry.
func settle(err error) error {
	var tr *transient
	if errors.As(err, &tr) {
		return tr.err
	}
	return err
}

// run calls attempt until it succeeds, returns a non-transient error, or the
// attempts are used up. The last transient error is returned unwrapped.
func (b backoff) run(ctx context.Context, op string, attempt func() error) error {
	log := logging.GetLogger("ai")
	delay := b.base
	for n := 1; ; n++ {
		err := attempt()
		var tr *transient
		if err == nil || !errors.As(err, &tr) {
			return err
		}
		if n >= b.attempts {
			return tr.err
		}
		wait := tr.after
		if wait <= 0 {
			wait = jitter(delay)
			if b.max > 0 && wait > b.max {
				wait = b.max
			}
			delay *= 2
		}
		log.Debug().Str("op", op).Int("attempt", n).Dur("wait", wait).Err(tr.err).Msg("retrying request")
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// retryableStatus reports whether a failed status code may succeed later.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// retryableNetErr reports timeouts and dropped connections.
func retryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
// Missing, malformed or past values yield 0.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at).Truncate(time.Second), 0)
	}
	return 0
}

// jitter spreads d by +/-20%.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
