package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gridstatus/internal-analytics/internal/accounts"
	"github.com/gridstatus/internal-analytics/internal/filters"
	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/queries"
)

const (
	defaultActiveUserDays  = 30
	maxActiveUserDays      = 90
	defaultActiveUserLimit = 50
	maxActiveUserLimit     = 500
)

// ActiveUser is one analytics-reported user cross-referenced against the
// internal account store. Unmatched identifiers are reported as-is with a
// nil UserID, since the analytics service keeps reporting accounts deleted
// on our side.
type ActiveUser struct {
	Email    string     `json:"email"`
	Events   int64      `json:"events"`
	LastSeen *time.Time `json:"last_seen"`
	UserID   *uint      `json:"user_id"`
	Name     string     `json:"name,omitempty"`
	PlanTier string     `json:"plan_tier,omitempty"`
}

// ActiveUsersResponse is the JSON shape of GET /api/users/active.
type ActiveUsersResponse struct {
	Users []ActiveUser `json:"users"`
}

// ActiveUsersAction lists the most active analytics-reported users over a
// trailing window and batch-resolves their emails to internal accounts.
func (h *Handler) ActiveUsersAction(c *fiber.Ctx) error {
	days := c.QueryInt("days", defaultActiveUserDays)
	if days < 1 || days > maxActiveUserDays {
		return respondError(c, h.logger, &ValidationError{Msg: "days must be between 1 and 90"})
	}
	limit := c.QueryInt("limit", defaultActiveUserLimit)
	if limit < 1 || limit > maxActiveUserLimit {
		return respondError(c, h.logger, &ValidationError{Msg: "limit must be between 1 and 500"})
	}
	order := strings.ToUpper(c.Query("order", "DESC"))

	fc := h.filterContext(c)
	fragments := queries.FragmentBindings(fc, h.cfg.InternalDomainList())

	text, err := queries.RenderNamed("active_users", fragments.Merge(queries.Bindings{
		"interval_days": queries.Int(days),
		"limit":         queries.Int(limit),
		"sort_order":    queries.Enum(order, "ASC", "DESC"),
	}))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	rows, err := h.insights.Execute(c.UserContext(), insights.Query{Text: text})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	resp, err := h.buildActiveUsersResponse(rows, fc)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(resp)
}

func (h *Handler) buildActiveUsersResponse(rows []insights.Row, fc filters.Context) (ActiveUsersResponse, error) {
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		if email := row.String(0); email != "" {
			emails = append(emails, email)
		}
	}

	resolved, err := accounts.ResolveUserIDs(h.db, emails)
	if err != nil {
		return ActiveUsersResponse{}, err
	}

	ids := make([]uint, 0, len(resolved))
	for _, id := range resolved {
		ids = append(ids, id)
	}
	users, err := accounts.UsersByIDs(h.db, ids)
	if err != nil {
		return ActiveUsersResponse{}, err
	}
	byID := make(map[uint]accounts.User, len(users))
	orgIDs := make([]uint, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		if u.OrganizationID != 0 {
			orgIDs = append(orgIDs, u.OrganizationID)
		}
	}
	tiers, err := accounts.OrganizationTiers(h.db, orgIDs)
	if err != nil {
		return ActiveUsersResponse{}, err
	}

	// The analytics-side fragment filters on the plan_tier event property,
	// which lags plan changes in the relational store; resolved users are
	// re-checked against current subscriptions.
	freeOrgs := make(map[uint]struct{})
	if fc.ExcludeFreeTier() {
		freeIDs, err := accounts.FreeTierOrganizationIDs(h.db)
		if err != nil {
			return ActiveUsersResponse{}, err
		}
		for _, orgID := range freeIDs {
			freeOrgs[orgID] = struct{}{}
		}
	}

	caser := cases.Title(language.AmericanEnglish)

	out := make([]ActiveUser, 0, len(rows))
	for _, row := range rows {
		email := row.String(0)
		entry := ActiveUser{
			Email:  email,
			Events: row.Int64(1),
		}
		if lastSeen := row.Time(2); !lastSeen.IsZero() {
			entry.LastSeen = &lastSeen
		}
		if id, ok := resolved[strings.ToLower(email)]; ok {
			entry.UserID = &id
			if u, found := byID[id]; found {
				if _, free := freeOrgs[u.OrganizationID]; free {
					continue
				}
				entry.Name = u.Name
				entry.PlanTier = caser.String(tiers[u.OrganizationID])
			}
		}
		out = append(out, entry)
	}

	return ActiveUsersResponse{Users: out}, nil
}
