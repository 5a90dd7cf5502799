package acquisition

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
)

// New creates the configured Backend.
func New(cfg config.AcquisitionConfig, logger zerolog.Logger) (Backend, error) {
	switch BackendType(cfg.Backend) {
	case BackendOverseerr:
		return NewOverseerr(cfg.Overseerr, logger), nil
	case BackendOmbi:
		return NewOmbi(cfg.Ombi, logger), nil
	case BackendWebhook:
		return NewWebhook(cfg.Webhook, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
