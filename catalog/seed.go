package catalog

import (
	_ "embed"
	"encoding/json"
)

// Sample catalog written durably the first time the process starts against an
// empty store. External image URLs only, so seeding costs almost nothing
// against the quota.
//
//go:embed seed.json
var seedData []byte

func seedItems() ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(seedData, &items); err != nil {
		return nil, err
	}
	return items, nil
}
