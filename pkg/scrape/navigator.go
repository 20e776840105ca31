package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
)

const (
	projectRowSelector  = `.project-list-item, [data-t*="project-item"], eplan-card`
	pageMoreSelector    = `eplan-icon-button[data-t*="ev-btn-page-more"]`
	listViewSelector    = `eplan-dropdown-item[data-name*="ev-page-list-view-btn"]`
	pageListItemQuery   = `pv-page-list-item`
	virtualViewportSel  = `cdk-virtual-scroll-viewport`
	openButtonSelectors = `button:has-text("Open"), button:has-text("Öffnen"), eplan-button:has-text("Open")`
)

// Navigator locates a project in the eVIEW workspace, opens it and
// switches the page tree to the flat list view required for extraction.
type Navigator struct {
	cfg Config
	log Logger
}

// NewNavigator creates a navigator with the given timing config.
func NewNavigator(cfg Config, log Logger) *Navigator {
	if log == nil {
		log = nopLogger{}
	}
	return &Navigator{cfg: cfg.withDefaults(), log: log}
}

// OpenProject implements orchestrator.Navigator.
func (n *Navigator) OpenProject(ctx context.Context, s orchestrator.Session, project models.ProjectReference) error {
	page, ok := s.(Page)
	if !ok {
		return fmt.Errorf("session does not expose page operations")
	}
	return n.openProject(ctx, page, project)
}

func (n *Navigator) openProject(parent context.Context, page Page, project models.ProjectReference) error {
	ctx, cancel := context.WithTimeout(parent, n.cfg.PhaseTimeout)
	defer cancel()

	phaseErr := func(err error) error {
		if parent.Err() != nil {
			return parent.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errPollTimeout) {
			return orchestrator.ErrLoadTimeout
		}
		return err
	}

	if err := n.waitProjectList(ctx, page); err != nil {
		return phaseErr(err)
	}

	if err := n.selectProject(ctx, page, project); err != nil {
		return phaseErr(err)
	}

	if err := n.switchToListView(ctx, page); err != nil {
		return phaseErr(err)
	}

	if err := n.waitPageListStable(ctx, page); err != nil {
		return phaseErr(err)
	}

	n.log.Infof("project %s open, page list ready", project)
	return nil
}

// waitProjectList waits for the workspace project listing to render.
func (n *Navigator) waitProjectList(ctx context.Context, page Page) error {
	return pollUntil(ctx, n.cfg.PollInterval, n.cfg.PhaseTimeout, func() (bool, error) {
		return page.Count(projectRowSelector) > 0, nil
	})
}

// selectProject clicks the tile matching the project name, then the open
// button if the tile alone does not open the project. A listing that
// renders without the requested project stays that way, so the search is
// retried until the deadline and then reported as not found.
func (n *Navigator) selectProject(ctx context.Context, page Page, project models.ProjectReference) error {
	name := project.String()
	selectors := []string{
		fmt.Sprintf(`text=%q`, name),
		fmt.Sprintf(`%s:has-text(%q)`, projectRowSelector, name),
	}

	var clicked bool
	err := pollUntil(ctx, n.cfg.PollInterval, n.cfg.PhaseTimeout, func() (bool, error) {
		if clicked {
			return true, nil
		}
		for _, sel := range selectors {
			if !page.IsVisible(sel) {
				continue
			}
			if err := page.Click(sel, timeoutMs(n.cfg.PollInterval)); err != nil {
				n.log.Debugf("project click on %q failed: %v", sel, err)
				continue
			}
			clicked = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, errPollTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("project %q: %w", name, orchestrator.ErrProjectNotFound)
		}
		return err
	}

	// Some workspace layouts need an explicit open action after selecting
	// the tile. Absent button means the click already opened the project.
	if page.IsVisible(openButtonSelectors) {
		if err := page.Click(openButtonSelectors, timeoutMs(n.cfg.PollInterval)); err != nil {
			n.log.Debugf("open button click failed: %v", err)
		}
	}
	return nil
}

// switchToListView opens the page-tree context menu and selects the flat
// list view. The menu may already be open from a previous attempt; a
// visible list-view entry is clicked directly.
func (n *Navigator) switchToListView(ctx context.Context, page Page) error {
	return pollUntil(ctx, n.cfg.PollInterval, n.cfg.PhaseTimeout, func() (bool, error) {
		if page.Count(pageListItemQuery) > 0 {
			return true, nil
		}
		if page.IsVisible(listViewSelector) {
			if err := page.Click(listViewSelector, timeoutMs(n.cfg.PollInterval)); err == nil {
				n.log.Debugf("switched to page list view")
			}
			return false, nil
		}
		if page.IsVisible(pageMoreSelector) {
			if err := page.Click(pageMoreSelector, timeoutMs(n.cfg.PollInterval)); err != nil {
				n.log.Debugf("page menu click failed: %v", err)
			}
		}
		return false, nil
	})
}

// waitPageListStable waits until the virtualized page list has settled:
// a non-zero item count observed unchanged across consecutive reads. A
// changed count resets the streak.
func (n *Navigator) waitPageListStable(ctx context.Context, page Page) error {
	last := -1
	streak := 0
	return pollUntil(ctx, n.cfg.PollInterval, n.cfg.PhaseTimeout, func() (bool, error) {
		count := page.Count(pageListItemQuery)
		if count == 0 {
			last, streak = -1, 0
			return false, nil
		}
		if count == last {
			streak++
		} else {
			last, streak = count, 1
		}
		if streak >= n.cfg.StableReads {
			n.log.Debugf("page list stable at %d items", count)
			return true, nil
		}
		return false, nil
	})
}
