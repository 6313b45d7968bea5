package engine

import (
	"encoding/json"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// classifyMeta extracts the declared zone and default EIP from a full
// membership listing row. Bad meta just yields an intent without a
// default declaration.
func classifyMeta(member models.MemberInfo) models.Intent {
	intent := models.Intent{
		Instance: member.ID,
		Addr:     member.Addr,
	}
	if len(member.Meta) == 0 {
		return intent
	}
	meta := models.NodeMeta{}
	if err := json.Unmarshal(member.Meta, &meta); err != nil {
		return intent
	}
	intent.Zone = meta.Zone
	intent.DefaultEIP = models.EIPID(meta.DefaultEIP)
	return intent
}
