package rules

import (
	"fmt"

	"github.com/codelaboratoryltd/netfab/internal/topology"
)

// Well-known rule ids.
const (
	RuleBandwidthCapacity  = "BW001"
	RuleLatencyRequirement = "LAT001"
)

// Defaults returns the default rule set: bandwidth capacity on every
// device and link of the path, and the end-to-end latency requirement.
func Defaults() []Rule {
	return []Rule{
		{
			ID:       RuleBandwidthCapacity,
			Name:     "Bandwidth Capacity Check",
			Priority: 1,
			Enabled:  true,
			Check:    checkBandwidthCapacity,
		},
		{
			ID:       RuleLatencyRequirement,
			Name:     "Latency Requirement Check",
			Priority: 2,
			Enabled:  true,
			Check:    checkLatencyRequirement,
		},
	}
}

func checkBandwidthCapacity(svc ServiceView, path *topology.PathView) []string {
	var msgs []string
	for _, d := range path.Devices {
		if svc.Bandwidth > d.Available {
			msgs = append(msgs, fmt.Sprintf("device %s cannot carry %v Gbps (available %v)", d.ID, svc.Bandwidth, d.Available))
		}
	}
	for _, l := range path.Links {
		if svc.Bandwidth > l.Available {
			msgs = append(msgs, fmt.Sprintf("link %s cannot carry %v Gbps (available %v)", l.ID, svc.Bandwidth, l.Available))
		}
	}
	return msgs
}

func checkLatencyRequirement(svc ServiceView, path *topology.PathView) []string {
	if svc.MaxLatency == nil {
		return nil
	}
	if total := path.TotalLatency(); total > *svc.MaxLatency {
		return []string{fmt.Sprintf("path latency %v ms exceeds requirement %v ms", total, *svc.MaxLatency)}
	}
	return nil
}
