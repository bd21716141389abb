// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gridstatus/internal-analytics/internal/accounts"
)

var (
	testDBCache   = make(map[string]*gorm.DB)
	testDBCacheMu sync.Mutex
)

// SetupTestDB creates an in-memory database with all account models
// migrated. Uses a named in-memory database with cache=shared so multiple
// connections within one test share state; cached by root test name so
// repeated calls in the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	defer testDBCacheMu.Unlock()

	if db, ok := testDBCache[rootName]; ok {
		return db
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", sanitize(rootName))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(accounts.AllModels()...))

	testDBCache[rootName] = db
	return db
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// NewTestLogger returns a logger that discards output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateOrganization inserts an organization.
func CreateOrganization(t *testing.T, db *gorm.DB, name, domain string) accounts.Organization {
	t.Helper()
	org := accounts.Organization{Name: name, Domain: domain}
	require.NoError(t, db.Create(&org).Error)
	return org
}

// CreatePlan inserts a plan.
func CreatePlan(t *testing.T, db *gorm.DB, name, tier string) accounts.Plan {
	t.Helper()
	plan := accounts.Plan{Name: name, Tier: tier}
	require.NoError(t, db.Create(&plan).Error)
	return plan
}

// CreateSubscription subscribes an organization to a plan.
func CreateSubscription(t *testing.T, db *gorm.DB, orgID, planID uint) accounts.Subscription {
	t.Helper()
	sub := accounts.Subscription{OrganizationID: orgID, PlanID: planID, StartedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&sub).Error)
	return sub
}

// CreateUser inserts a user.
func CreateUser(t *testing.T, db *gorm.DB, email, name string, orgID uint) accounts.User {
	t.Helper()
	user := accounts.User{Email: email, Name: name, OrganizationID: orgID}
	require.NoError(t, db.Create(&user).Error)
	return user
}
