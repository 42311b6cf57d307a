// Package gcloud provides a language-detection provider backed by the Google
// Cloud Translation v2 API. It is preferred over the model-based detector
// when service-account credentials are configured.
package gcloud

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/detect"
)

// Compile-time interface assertion.
var _ detect.Provider = (*Provider)(nil)

// Provider implements detect.Provider using Cloud Translation detection.
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
func (p *Provider) ID() string { return "gcloud/detect" }

// Detect returns the language code Cloud Translation identifies for text.
func (p *Provider) Detect(ctx context.Context, text string) (string, error) {
	resp, err := p.svc.Detections.List([]string{text}).Context(ctx).Do()
	if err != nil {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "detect: %v", err)
	}
	if len(resp.Detections) == 0 || len(resp.Detections[0]) == 0 || resp.Detections[0][0].Language == "" {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "response missing detections")
	}
	return strings.ToLower(resp.Detections[0][0].Language), nil
}
