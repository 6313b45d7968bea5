package classifier

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/metrics"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// Classifier turns raw gossip events into intents. Malformed events
// (no instance id) are dropped and counted, never fatal.
type Classifier struct {
	self    models.NodeID
	metrics metrics.Metrics
}

func New(self models.NodeID, m metrics.Metrics) *Classifier {
	return &Classifier{
		self:    self,
		metrics: m,
	}
}

func (c *Classifier) Classify(raw models.RawMemberEvent) (models.Intent, bool) {
	if raw.Name == "" {
		log.Warn().Msgf("dropping malformed membership event: no instance id (kind=%d)", raw.Kind)
		c.metrics.Increment("event.malformed")
		return models.Intent{}, false
	}

	intent := models.Intent{
		Instance: models.NodeID(raw.Name),
		Addr:     raw.Addr,
	}

	switch raw.Kind {
	case models.RawJoin:
		intent.Type = models.IntentInstanceJoined
		if intent.Instance == c.self {
			intent.Type = models.IntentSelfJoined
		}
	case models.RawLeave:
		if raw.Dead {
			intent.Type = models.IntentInstanceFailed
		} else {
			intent.Type = models.IntentInstanceLeft
		}
	case models.RawUpdate:
		intent.Type = models.IntentInstanceUpdated
	default:
		log.Warn().Msgf("dropping membership event of unknown kind %d from %s", raw.Kind, raw.Name)
		c.metrics.Increment("event.malformed")
		return models.Intent{}, false
	}

	if len(raw.Meta) > 0 {
		meta := models.NodeMeta{}
		if err := json.Unmarshal(raw.Meta, &meta); err != nil {
			// The id is good, only the advertised metadata is not;
			// classify without a default EIP.
			log.Warn().Err(err).Msgf("bad node meta from %s", raw.Name)
			c.metrics.Increment("event.bad_meta")
		} else {
			intent.Zone = meta.Zone
			intent.DefaultEIP = models.EIPID(meta.DefaultEIP)
		}
	}

	c.metrics.Increment("event." + intent.Type.String())
	return intent, true
}
