package qbo

import (
	"context"
	"fmt"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
)

// FetchMappings pulls the active name→id tables for one company. The
// result is a point-in-time snapshot; a job fetches it once after
// switching realms and resolves every row against it.
func (c *Client) FetchMappings(ctx context.Context, realmID string) (resolver.MappingSet, error) {
	set := resolver.MappingSet{}
	load := func(entity, where string, dst *map[string]string) error {
		docs, err := c.Query(ctx, realmID, entity, where)
		if err != nil {
			return fmt.Errorf("failed to fetch %s list: %w", entity, err)
		}
		table := make(map[string]string, len(docs))
		for _, d := range docs {
			if name := d.DisplayName(); name != "" {
				table[name] = d.ID
			}
		}
		*dst = table
		return nil
	}

	if err := load("Account", "Active = true", &set.Accounts); err != nil {
		return set, err
	}
	if err := load("Department", "Active = true", &set.Locations); err != nil {
		return set, err
	}
	if err := load("Class", "Active = true", &set.Classes); err != nil {
		return set, err
	}
	if err := load("Vendor", "Active = true", &set.Vendors); err != nil {
		return set, err
	}
	if err := load("PaymentMethod", "Active = true", &set.PaymentMethods); err != nil {
		return set, err
	}

	c.logger.Info("fetched company mappings",
		"realm", realmID,
		"accounts", len(set.Accounts),
		"locations", len(set.Locations),
		"classes", len(set.Classes),
		"vendors", len(set.Vendors))
	return set, nil
}
