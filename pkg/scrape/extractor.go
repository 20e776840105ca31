package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
)

const (
	// plcPageMarker identifies diagram pages that carry variable tables.
	plcPageMarker = "plc-diagram"

	// scrollStep is the pixel distance per virtual-scroll advance. Small
	// enough that no list item can skip past the visible window.
	scrollStep = 400
)

// Extractor walks the virtualized page list, opens every PLC diagram
// page and parses the rendered SVG text into variable records.
type Extractor struct {
	cfg Config
	log Logger
}

// NewExtractor creates an extractor with the given timing config.
func NewExtractor(cfg Config, log Logger) *Extractor {
	if log == nil {
		log = nopLogger{}
	}
	return &Extractor{cfg: cfg.withDefaults(), log: log}
}

// Extract implements orchestrator.Extractor.
func (e *Extractor) Extract(ctx context.Context, s orchestrator.Session, project models.ProjectReference) (*models.VariableTable, error) {
	page, ok := s.(Page)
	if !ok {
		return nil, fmt.Errorf("session does not expose page operations")
	}
	return e.extract(ctx, page, project)
}

// extract drives the virtual scroller from top to bottom. Items only
// exist in the DOM while scrolled into view, so each window is processed
// before advancing. The result is all-or-nothing: any error discards
// records collected so far.
func (e *Extractor) extract(ctx context.Context, page Page, project models.ProjectReference) (*models.VariableTable, error) {
	if page.Count(pageListItemQuery) == 0 {
		return nil, fmt.Errorf("page list missing: %w", orchestrator.ErrSchemaMismatch)
	}

	if err := e.scrollToTop(page); err != nil {
		e.log.Debugf("scroll reset failed: %v", err)
	}

	table := models.NewVariableTable(project.String())
	seen := make(map[string]struct{})
	plcPages := 0
	lastTop := -1.0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items := page.Texts(pageListItemQuery)
		for idx, text := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !strings.Contains(strings.ToLower(text), plcPageMarker) {
				continue
			}
			key := strings.TrimSpace(text)
			if _, done := seen[key]; done {
				continue
			}
			seen[key] = struct{}{}
			plcPages++

			records, err := e.readDiagramPage(ctx, page, idx, key)
			if err != nil {
				return nil, err
			}
			for _, rec := range records {
				table.Append(rec)
			}
		}

		top, err := e.scrollBy(page, scrollStep)
		if err != nil {
			return nil, fmt.Errorf("virtual scroll failed: %w", orchestrator.ErrSchemaMismatch)
		}
		if top <= lastTop {
			break
		}
		lastTop = top
	}

	if plcPages == 0 {
		return nil, fmt.Errorf("no PLC diagram pages in project: %w", orchestrator.ErrSchemaMismatch)
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("no variable rows parsed from %d PLC pages: %w", plcPages, orchestrator.ErrSchemaMismatch)
	}

	e.log.Infof("extracted %d records from %d PLC pages", table.Len(), plcPages)
	return table, nil
}

// readDiagramPage opens the list item at idx, waits for the SVG render
// and parses its text nodes.
func (e *Extractor) readDiagramPage(ctx context.Context, page Page, idx int, name string) ([]models.VariableRecord, error) {
	sel := fmt.Sprintf("%s >> nth=%d", pageListItemQuery, idx)
	if err := page.Click(sel, timeoutMs(e.cfg.PhaseTimeout)); err != nil {
		return nil, fmt.Errorf("opening page %q: %w", name, orchestrator.ErrSchemaMismatch)
	}

	var texts []string
	err := pollUntil(ctx, e.cfg.PollInterval, e.cfg.PhaseTimeout, func() (bool, error) {
		source, err := page.PageSource()
		if err != nil {
			return false, nil
		}
		texts = extractSVGTexts(source)
		return len(texts) > 0, nil
	})
	if err != nil {
		if errors.Is(err, errPollTimeout) {
			e.log.Warnf("page %q rendered no SVG text", name)
			return nil, nil
		}
		return nil, err
	}

	records := parseVariableRows(texts)
	e.log.Debugf("page %q: %d text nodes, %d records", name, len(texts), len(records))
	return records, nil
}

// scrollToTop resets the virtual scroller so iteration starts at the
// first page entry.
func (e *Extractor) scrollToTop(page Page) error {
	_, err := page.Evaluate(fmt.Sprintf(
		`() => { const v = document.querySelector(%q); if (v) v.scrollTop = 0; }`,
		virtualViewportSel))
	// Give the scroller one frame to re-render the window.
	time.Sleep(e.cfg.PollInterval)
	return err
}

// scrollBy advances the scroller and returns the resulting scrollTop. A
// scrollTop that stops advancing means the end of the list.
func (e *Extractor) scrollBy(page Page, step int) (float64, error) {
	result, err := page.Evaluate(fmt.Sprintf(
		`() => { const v = document.querySelector(%q); if (!v) return -1; v.scrollTop += %d; return v.scrollTop; }`,
		virtualViewportSel, step))
	if err != nil {
		return 0, err
	}
	top, ok := toFloat(result)
	if !ok || top < 0 {
		return 0, fmt.Errorf("viewport %s not found", virtualViewportSel)
	}
	// Let the virtual scroller materialize the next window.
	time.Sleep(e.cfg.PollInterval)
	return top, nil
}

// toFloat normalizes the numeric types Evaluate can hand back.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
