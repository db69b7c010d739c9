package record

import (
	"path"
	"regexp"
	"strings"
)

// HarvestInfo describes the harvest a container belongs to, parsed from its file name
type HarvestInfo struct {
	Name string
	Type string
	// Date is YYYYMMDD of the container's first capture
	Date string
}

// container names look like <harvest-name>-<timestamp of 8+ digits>-<crawler suffix>
var harvestName = regexp.MustCompile(`(.+)\-(\d{8,})\-`)

// ParseHarvestInfo extracts harvest name, type and date from a container file name or URI
func ParseHarvestInfo(name string) (HarvestInfo, bool) {
	m := harvestName.FindStringSubmatch(path.Base(name))
	if m == nil {
		return HarvestInfo{}, false
	}
	return HarvestInfo{
		Name: m[1],
		Type: strings.SplitN(m[1], "-", 2)[0],
		Date: m[2][:8],
	}, true
}
