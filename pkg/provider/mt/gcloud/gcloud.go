// Package gcloud provides a translation provider backed by the Google Cloud
// Translation v2 API. The router uses it as the language-pair override for
// languages where the open opus-mt models are weak (Korean by default).
package gcloud

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/mt"
)

// Compile-time interface assertion.
var _ mt.Provider = (*Provider)(nil)

// Provider implements mt.Provider using Cloud Translation.
type Provider struct {
	svc *translatev2.Service
}

// New creates a Provider authenticated by the service-account credentials
// file at credentialsFile.
func New(ctx context.Context, credentialsFile string) (*Provider, error) {
	if credentialsFile == "" {
		return nil, errors.New("gcloud: credentialsFile must not be empty")
	}
	svc, err := translatev2.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	return &Provider{svc: svc}, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "gcloud/translate" }

// Translate renders text from sourceLang into targetLang.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	call := p.svc.Translations.List([]string{text}, targetLang).Format("text")
	if sourceLang != "" && sourceLang != "auto" {
		call = call.Source(sourceLang)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "translate: %v", err)
	}
	if len(resp.Translations) == 0 || strings.TrimSpace(resp.Translations[0].TranslatedText) == "" {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "response missing translations")
	}
	return strings.TrimSpace(resp.Translations[0].TranslatedText), nil
}
