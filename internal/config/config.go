package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

const DefaultPoolPath = "/etc/eip.conf"

// ZoneEntry is one availability zone's slice of the EIP pool. The file
// format is the operator-managed /etc/eip.conf:
//
//	{
//	  "eu-west-1a": {
//	    "eth1_id": "eni-abc123",
//	    "eth2_id": "eni-abc456",
//	    "elastic_ip_allocation_id": "eipalloc-cc618fa9"
//	  }
//	}
type ZoneEntry struct {
	Eth1ID       string `json:"eth1_id"`
	Eth2ID       string `json:"eth2_id"`
	AllocationID string `json:"elastic_ip_allocation_id"`
}

// Pool maps availability zone -> zone entry. The zone count is the
// quorum denominator seed: even before gossip has converged we know how
// many instances the cluster is supposed to have.
type Pool map[string]ZoneEntry

func LoadPool(path string) (Pool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eip pool file: %w", err)
	}
	return ParsePool(raw)
}

func ParsePool(raw []byte) (Pool, error) {
	pool := Pool{}
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, fmt.Errorf("failed to parse eip pool file: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("eip pool file has no zones")
	}
	return pool, nil
}

func (p Pool) EIPForZone(zone string) (models.EIPID, bool) {
	entry, exists := p[zone]
	if !exists || entry.AllocationID == "" {
		return "", false
	}
	return models.EIPID(entry.AllocationID), true
}

func (p Pool) ZoneForEIP(eip models.EIPID) (string, bool) {
	for zone, entry := range p {
		if entry.AllocationID == eip.String() {
			return zone, true
		}
	}
	return "", false
}

// Zones returns the configured zones in stable order.
func (p Pool) Zones() []string {
	zones := make([]string, 0, len(p))
	for zone := range p {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

// EIPs returns every allocation id in the pool in stable order.
func (p Pool) EIPs() []models.EIPID {
	eips := make([]models.EIPID, 0, len(p))
	for _, zone := range p.Zones() {
		if eip, ok := p.EIPForZone(zone); ok {
			eips = append(eips, eip)
		}
	}
	return eips
}
