package engine

import "github.com/Sh00ty/network-lb/eip-failover-node/internal/models"

// Claim picks who takes over a vacated EIP: the lexicographically
// smallest alive instance not already holding another floating IP.
// Instances that hold one are skipped; with allowStacking the smallest
// of them serves as a fallback when every candidate already holds one.
//
// Determinism is the point: two engines that derive the same alive-set
// converge on the same assignment without any coordination, which is
// what stands in for a distributed lock here. alive must be sorted
// lexicographically.
func Claim(
	alive []models.NodeID,
	eip models.EIPID,
	holds func(models.NodeID, models.EIPID) bool,
	allowStacking bool,
) (models.NodeID, bool) {
	var fallback models.NodeID
	for _, id := range alive {
		if !holds(id, eip) {
			return id, true
		}
		if fallback == "" {
			fallback = id
		}
	}
	if allowStacking && fallback != "" {
		return fallback, true
	}
	return "", false
}
