package cascade

import (
	"github.com/elliotchance/orderedmap/v3"
)

// SupportRatio accumulates how often a property was applied and how many
// clients fail to support it.
type SupportRatio struct {
	Usage         int
	FailedClients int
}

// Ratios keeps support ratios in order of first property use.
type Ratios = orderedmap.OrderedMap[string, SupportRatio]

// Score reduces support ratios to overall percentage of client support.
// Result is always within [0, 100], 100 when nothing fails.
func Score(ratios *Ratios, clientCount int) float64 {
	if ratios == nil {
		return 100
	}
	var fail, total int
	for _, r := range ratios.AllFromFront() {
		fail += r.Usage * r.FailedClients
		total += r.Usage * clientCount
	}
	if fail == 0 || total == 0 {
		return 100
	}
	return 100 - float64(fail)/float64(total)*100
}
