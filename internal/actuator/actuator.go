// Package actuator abstracts the floating-IP provider. All calls must
// be idempotent at the provider: associating an address that is
// already on the target is a no-op, and Associate must force-reassign
// an address held by an unreachable peer.
package actuator

import (
	"context"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

type Actuator interface {
	// Associate binds the EIP to the instance, stealing it from any
	// previous holder.
	Associate(ctx context.Context, eip models.EIPID, instance models.NodeID) error
	// Disassociate unbinds the EIP. Safe to call when not associated.
	Disassociate(ctx context.Context, eip models.EIPID, instance models.NodeID) error
	// CurrentHolder reports which instance the provider has the EIP
	// bound to right now; empty when unbound.
	CurrentHolder(ctx context.Context, eip models.EIPID) (models.NodeID, error)
}
