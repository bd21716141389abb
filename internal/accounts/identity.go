package accounts

import (
	"strings"

	"gorm.io/gorm"
)

// ResolveUserIDs batch-resolves analytics-reported email identifiers to
// internal user IDs in a single query. The returned map is partial:
// identifiers without a matching account are simply absent, since the
// analytics service may still report users deleted on our side.
func ResolveUserIDs(db *gorm.DB, emails []string) (map[string]uint, error) {
	resolved := make(map[string]uint, len(emails))
	if len(emails) == 0 {
		return resolved, nil
	}

	normalized := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		e := strings.ToLower(strings.TrimSpace(email))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}
	if len(normalized) == 0 {
		return resolved, nil
	}

	var rows []struct {
		ID    uint
		Email string
	}
	err := db.Model(&User{}).
		Select("id", "email").
		Where("lower(email) IN ?", normalized).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		resolved[strings.ToLower(row.Email)] = row.ID
	}
	return resolved, nil
}

// FreeTierOrganizationIDs returns organizations whose active subscription
// is on the free tier (or who have no subscription at all).
func FreeTierOrganizationIDs(db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.Model(&Organization{}).
		Joins("LEFT JOIN subscriptions ON subscriptions.organization_id = organizations.id AND subscriptions.canceled_at IS NULL").
		Joins("LEFT JOIN plans ON plans.id = subscriptions.plan_id").
		Where("plans.tier = ? OR plans.id IS NULL", PlanTierFree).
		Pluck("organizations.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
