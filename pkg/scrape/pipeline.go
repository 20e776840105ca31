package scrape

import (
	"context"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/browser"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
)

// Pipeline wires the scrape phases and a browser manager into the
// dependency set an orchestrator run executes against.
func Pipeline(mgr *browser.Manager, cfg Config, log Logger) orchestrator.Deps {
	cfg = cfg.withDefaults()
	return orchestrator.Deps{
		Backend:       &managerBackend{mgr: mgr},
		Authenticator: NewAuthenticator(cfg, log),
		Navigator:     NewNavigator(cfg, log),
		Extractor:     NewExtractor(cfg, log),
	}
}

// managerBackend adapts browser.Manager to the orchestrator's Backend.
type managerBackend struct {
	mgr *browser.Manager
}

func (b *managerBackend) Open(ctx context.Context, visible bool) (orchestrator.Session, error) {
	session, err := b.mgr.Open(ctx, browser.OpenOptions{Visible: visible})
	if err != nil {
		return nil, err
	}
	return session, nil
}
