package memberlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/memberlist"
	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

type Config struct {
	NodeName            string        `envconfig:"EIP_NODE_ID"`
	Zone                string        `envconfig:"EIP_ZONE"`
	Port                int           `envconfig:"GOSSIP_PORT"`
	GossipProbeInterval time.Duration `envconfig:"GOSSIP_PROBE_INTERVAL"`
	GossipProbeTimeout  time.Duration `envconfig:"GOSSIP_PROBE_TIMEOUT"`
	SeedNodes           []string      `envconfig:"-"`
}

// metaDelegate advertises this node's zone and default EIP to the rest
// of the cluster inside the gossip node meta.
type metaDelegate struct {
	meta []byte
}

func (d *metaDelegate) NodeMeta(limit int) []byte {
	if len(d.meta) > limit {
		return nil
	}
	return d.meta
}

func (d *metaDelegate) NotifyMsg([]byte)                           {}
func (d *metaDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (d *metaDelegate) LocalState(join bool) []byte                { return nil }
func (d *metaDelegate) MergeRemoteState(buf []byte, join bool)     {}

type MemberList struct {
	list      *memberlist.Memberlist
	seedNodes []string
}

func New(ctx context.Context, cfg Config, defaultEIP models.EIPID, notify chan models.RawMemberEvent) (*MemberList, error) {
	const eventBufSize = 256

	meta, err := json.Marshal(models.NodeMeta{
		Zone:       cfg.Zone,
		DefaultEIP: defaultEIP.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode node meta: %w", err)
	}

	events := make(chan memberlist.NodeEvent, eventBufSize)
	config := memberlist.DefaultLocalConfig()
	config.Name = cfg.NodeName
	config.BindPort = cfg.Port
	config.AdvertisePort = cfg.Port
	config.LogOutput = io.Discard
	config.ProbeInterval = cfg.GossipProbeInterval
	config.ProbeTimeout = cfg.GossipProbeTimeout
	config.Delegate = &metaDelegate{meta: meta}
	config.Events = &memberlist.ChannelEventDelegate{
		Ch: events,
	}

	ml, err := memberlist.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create memberlist: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case mlEvent, opened := <-events:
				if !opened {
					return
				}
				log.Debug().Msgf(
					"got event from node %s: type=%d, node.status=%d",
					mlEvent.Node.Name,
					mlEvent.Event,
					mlEvent.Node.State,
				)
				raw := models.RawMemberEvent{
					Name: mlEvent.Node.Name,
					Addr: mlEvent.Node.Address(),
					Meta: mlEvent.Node.Meta,
				}
				switch mlEvent.Event {
				case memberlist.NodeJoin:
					raw.Kind = models.RawJoin
				case memberlist.NodeLeave:
					raw.Kind = models.RawLeave
					raw.Dead = mlEvent.Node.State != memberlist.StateLeft
				case memberlist.NodeUpdate:
					raw.Kind = models.RawUpdate
				default:
					raw.Kind = models.RawUnknown
				}
				select {
				case notify <- raw:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return &MemberList{
		list:      ml,
		seedNodes: cfg.SeedNodes,
	}, nil
}

func (l *MemberList) Join(ctx context.Context) error {
	_, err := l.list.Join(l.seedNodes)
	if err != nil {
		return fmt.Errorf("failed to join memberlist: %w", err)
	}
	return nil
}

// FullView lists every member the gossip layer currently considers
// alive. Used for cold start and periodic resynchronization.
func (l *MemberList) FullView() models.MembershipView {
	members := l.list.Members()
	view := models.MembershipView{
		Members: make([]models.MemberInfo, 0, len(members)),
	}
	for _, member := range members {
		view.Members = append(view.Members, models.MemberInfo{
			ID:   models.NodeID(member.Name),
			Addr: member.Address(),
			Meta: member.Meta,
		})
	}
	return view
}

func (l *MemberList) GracefullyClose(timeout time.Duration) error {
	log.Warn().Msg("start graceful leave from gossip cluster")

	return l.list.Leave(timeout)
}

func (l *MemberList) Close() error {
	log.Warn().Msg("force leave gossip cluster")

	return l.list.Shutdown()
}
