package controllers

import (
	"net/http"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	"github.com/businesssadigital-oss/backendpay/api/validators"
	settingsvc "github.com/businesssadigital-oss/backendpay/internal/settings"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

func SettingsGet(svc settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setting, err := svc.GetSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}

type saveSettingsRequest struct {
	SiteName        string            `json:"siteName,omitempty"`
	SiteDescription string            `json:"siteDescription,omitempty"`
	LogoURL         string            `json:"logoUrl,omitempty"`
	FooterText      string            `json:"footerText,omitempty"`
	SocialLinks     types.SocialLinks `json:"socialLinks,omitempty"`
}

// SettingsSave replaces the whole settings document.
func SettingsSave(svc settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload saveSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setting, err := svc.SaveSettings(r.Context(), settingsvc.SaveInput{
			SiteName:        payload.SiteName,
			SiteDescription: payload.SiteDescription,
			LogoURL:         payload.LogoURL,
			FooterText:      payload.FooterText,
			SocialLinks:     payload.SocialLinks,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}
