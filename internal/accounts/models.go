// Package accounts holds the relational models backing the dashboard and
// the helpers that cross-reference them with analytics-reported data.
package accounts

import (
	"time"

	"gorm.io/gorm"
)

// Plan tiers
const (
	PlanTierFree       = "free"
	PlanTierPro        = "pro"
	PlanTierEnterprise = "enterprise"
)

// User is an internal account holder.
type User struct {
	gorm.Model
	Email          string `gorm:"uniqueIndex;not null"`
	Name           string
	OrganizationID uint         `gorm:"index"`
	Organization   Organization `gorm:"foreignKey:OrganizationID"`
}

// Organization groups users under one billing entity.
type Organization struct {
	gorm.Model
	Name   string `gorm:"not null"`
	Domain string `gorm:"index"`
}

// Plan is a billable product tier.
type Plan struct {
	gorm.Model
	Name          string `gorm:"uniqueIndex;not null"`
	Tier          string `gorm:"index;not null"`
	MonthlyCents  int
	RequestsLimit int
}

// Subscription links an organization to a plan.
type Subscription struct {
	gorm.Model
	OrganizationID uint `gorm:"index;not null"`
	PlanID         uint `gorm:"index;not null"`
	Plan           Plan `gorm:"foreignKey:PlanID"`
	StartedAt      time.Time
	CanceledAt     *time.Time
}

// UsageEvent is one metered API call or page action recorded internally.
type UsageEvent struct {
	gorm.Model
	UserID     uint      `gorm:"index"`
	Kind       string    `gorm:"index"`
	Quantity   int64     `gorm:"default:1"`
	OccurredAt time.Time `gorm:"index"`
}

// AllModels returns every account model for migration.
func AllModels() []any {
	return []any{
		&User{},
		&Organization{},
		&Plan{},
		&Subscription{},
		&UsageEvent{},
	}
}
