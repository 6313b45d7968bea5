package poolwatcher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	kafka "github.com/segmentio/kafka-go"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// PoolUpdateDto is the wire format operators publish to the pool
// topic to grow or shrink the EIP pool at runtime.
type PoolUpdateDto struct {
	Op           string `json:"op"` // "add" or "remove"
	Zone         string `json:"zone"`
	AllocationID string `json:"elastic_ip_allocation_id"`
	Eth1ID       string `json:"eth1_id"`
}

type Engine interface {
	ApplyPoolUpdate(ctx context.Context, update models.PoolUpdate) error
}

type Watcher struct {
	msgReader *kafka.Reader
	engine    Engine
}

func New(nodeID string, addr string, topic string, engine Engine) *Watcher {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{addr},
		Topic:       topic,
		MaxBytes:    1024 * 1024,
		GroupID:     nodeID,
		StartOffset: kafka.LastOffset,
	})
	return &Watcher{
		msgReader: reader,
		engine:    engine,
	}
}

func (w *Watcher) Run(ctx context.Context) error {
	for {
		msg, err := w.msgReader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			_ = w.msgReader.CommitMessages(ctx, msg)
			continue
		}
		dto := PoolUpdateDto{}
		err = json.Unmarshal(msg.Value, &dto)
		if err != nil {
			log.Error().Err(err).Msg("failed to decode pool update from json")
			_ = w.msgReader.CommitMessages(ctx, msg)
			continue
		}

		update := models.PoolUpdate{
			Zone:   dto.Zone,
			EIP:    models.EIPID(dto.AllocationID),
			Eth1ID: dto.Eth1ID,
		}
		switch dto.Op {
		case "add":
		case "remove":
			update.Remove = true
		default:
			log.Warn().Msgf("skipping pool update with unknown op %q", dto.Op)
			_ = w.msgReader.CommitMessages(ctx, msg)
			continue
		}
		if update.Zone == "" || update.EIP == "" {
			log.Warn().Msgf("skipping malformed pool update: %+v", dto)
			_ = w.msgReader.CommitMessages(ctx, msg)
			continue
		}

		if err := w.engine.ApplyPoolUpdate(ctx, update); err != nil {
			return err
		}
		if err := w.msgReader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to commit pool update offset")
		}
	}
}

func (w *Watcher) Close() error {
	return w.msgReader.Close()
}
