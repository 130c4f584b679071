package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:settings_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "settings-test"})
	events := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, events)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestGetSettingsReturnsDefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	setting, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if setting.SiteName != "Matajir" {
		t.Fatalf("expected default site name, got %q", setting.SiteName)
	}
}

func TestSaveSettingsReplacesDocument(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveSettings(ctx, SaveInput{
		SiteName:   "First",
		FooterText: "v1",
		SocialLinks: types.SocialLinks{
			Instagram: "https://instagram.com/first",
		},
	}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// A second save overwrites everything, including fields left empty.
	if _, err := svc.SaveSettings(ctx, SaveInput{SiteName: "Second"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	stored, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if stored.SiteName != "Second" {
		t.Fatalf("expected Second, got %q", stored.SiteName)
	}
	if stored.FooterText != "" {
		t.Fatalf("expected footer cleared, got %q", stored.FooterText)
	}
	if stored.SocialLinks.Instagram != "" {
		t.Fatalf("expected social links cleared, got %q", stored.SocialLinks.Instagram)
	}

	// Still one row.
	var count int64
	if err := db.Model(&models.Setting{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected singleton row, got %d", count)
	}

	var events []models.OutboxEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 replace events, got %d", len(events))
	}
	for _, e := range events {
		if e.Collection != enums.CollectionSettings || e.Operation != enums.ChangeOperationReplace {
			t.Fatalf("unexpected event: %+v", e)
		}
	}
}
