package accounts

import (
	"gorm.io/gorm"
)

// UsersByIDs loads users (with their organization) for the given IDs.
func UsersByIDs(db *gorm.DB, ids []uint) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	var users []User
	err := db.Preload("Organization").Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// OrganizationTiers returns the active plan tier per organization. An
// organization with no active subscription maps to the free tier.
func OrganizationTiers(db *gorm.DB, orgIDs []uint) (map[uint]string, error) {
	tiers := make(map[uint]string, len(orgIDs))
	if len(orgIDs) == 0 {
		return tiers, nil
	}

	var rows []struct {
		OrganizationID uint
		Tier           string
	}
	err := db.Model(&Subscription{}).
		Select("subscriptions.organization_id", "plans.tier").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id").
		Where("subscriptions.organization_id IN ?", orgIDs).
		Where("subscriptions.canceled_at IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		tiers[row.OrganizationID] = row.Tier
	}
	for _, id := range orgIDs {
		if _, ok := tiers[id]; !ok {
			tiers[id] = PlanTierFree
		}
	}
	return tiers, nil
}
