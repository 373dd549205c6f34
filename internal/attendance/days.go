package attendance

import (
	"sort"

	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

// MarkedDays lists the distinct UTC+7 dates ("yyyy-mm-dd") that have at
// least one log, ascending.
func MarkedDays(logs []models.LogEntry) []string {
	seen := make(map[string]struct{}, len(logs))
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		d := util.BusinessDate(l.Timestamp)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
