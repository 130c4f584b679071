package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

type settingsRepository interface {
	Find(ctx context.Context) (*models.Setting, error)
	Upsert(tx *gorm.DB, setting *models.Setting) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the storefront's singleton settings document.
type Service interface {
	GetSettings(ctx context.Context) (*models.Setting, error)
	SaveSettings(ctx context.Context, input SaveInput) (*models.Setting, error)
}

// SaveInput replaces the settings document wholesale, matching the admin
// panel's save-all behavior.
type SaveInput struct {
	SiteName        string
	SiteDescription string
	LogoURL         string
	FooterText      string
	SocialLinks     types.SocialLinks
}

type service struct {
	repo   settingsRepository
	tx     txRunner
	events outboxEmitter
}

func NewService(repo settingsRepository, tx txRunner, events outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, events: events}, nil
}

// GetSettings returns the stored document, or the defaults when nothing has
// been saved yet.
func (s *service) GetSettings(ctx context.Context) (*models.Setting, error) {
	row, err := s.repo.Find(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultSettings(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return row, nil
}

func (s *service) SaveSettings(ctx context.Context, input SaveInput) (*models.Setting, error) {
	setting := &models.Setting{
		SiteName:        input.SiteName,
		SiteDescription: input.SiteDescription,
		LogoURL:         input.LogoURL,
		FooterText:      input.FooterText,
		SocialLinks:     input.SocialLinks,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Upsert(tx, setting); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionSettings,
			Operation:   enums.ChangeOperationReplace,
			DocumentKey: "settings",
		})
	})
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func defaultSettings() *models.Setting {
	return &models.Setting{
		SiteName:        "Matajir",
		SiteDescription: "Digital cards and subscriptions storefront",
		FooterText:      "All rights reserved",
	}
}
