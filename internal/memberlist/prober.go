package memberlist

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Prober double-checks a reported death by dialing the member's gossip
// port directly. Gossip suspicion can be a false positive under
// partial partitions; a member that still answers TCP is not failed
// over.
type Prober struct {
	Retries int
	Timeout time.Duration
	Backoff time.Duration
}

func NewProber() *Prober {
	return &Prober{
		Retries: 3,
		Timeout: 2 * time.Second,
		Backoff: time.Second,
	}
}

// Down returns true when the member cannot be reached after all
// retries.
func (p *Prober) Down(ctx context.Context, addr string) bool {
	dialer := net.Dialer{Timeout: p.Timeout}
	for attempt := 0; attempt < p.Retries; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return false
		}
		log.Debug().Err(err).Msgf("down check attempt %d for %s", attempt+1, addr)
		select {
		case <-ctx.Done():
			return true
		case <-time.After(p.Backoff):
		}
	}
	return true
}
