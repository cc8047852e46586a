// Package browser owns the headless Chrome session used to reach the
// dashboard. It is the external collaborator boundary: everything past
// Login/FrameHTML/Screenshot is chromedp machinery.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/config"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
)

// Session wraps one browser process and one page for the run's lifetime.
// Close must run on every exit path.
type Session struct {
	cfg         *config.Config
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func NewSession(parent context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions to force the browser process up front, so a
	// missing Chrome binary fails here instead of mid-login.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &Session{
		cfg:         cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// Login navigates to the dashboard and authenticates through the login
// form. The dashboard serves the form on the dashboard URL itself and
// renders the target page in place after a successful submit.
func (s *Session) Login(user, pass string) error {
	loginCtx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.LoginTimeout)*time.Second)
	defer cancel()

	s.logger.Info("navigating to dashboard", zap.String("url", s.cfg.DashboardURL))
	err := chromedp.Run(loginCtx,
		chromedp.Navigate(s.cfg.DashboardURL),
		chromedp.WaitVisible(`input[name="username"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="username"]`, user, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"]`, pass, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLoginFailed, err)
	}

	// Post-login the dashboard keeps fetching widget data; give the page a
	// settle window before the caller starts polling for the table.
	navCtx, cancelNav := context.WithTimeout(s.ctx, time.Duration(s.cfg.NavTimeout)*time.Second)
	defer cancelNav()
	err = chromedp.Run(navCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(5*time.Second),
	)
	if err != nil {
		return fmt.Errorf("%w: dashboard did not render after login: %v", domain.ErrNavigationTimeout, err)
	}

	s.logger.Info("login successful")
	return nil
}

// FrameHTML returns the top document's HTML followed by each iframe's, in
// target order. The follow-ups widget has rendered inside an iframe on past
// deployments, so callers should search every returned document. Iframe
// capture is best-effort; a frame that cannot be read is logged and skipped.
func (s *Session) FrameHTML() ([]string, error) {
	navCtx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.NavTimeout)*time.Second)
	defer cancel()

	var top string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &top, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("%w: read page document: %v", domain.ErrNavigationTimeout, err)
	}
	docs := []string{top}

	targets, err := chromedp.Targets(s.ctx)
	if err != nil {
		s.logger.Warn("could not enumerate frames", zap.Error(err))
		return docs, nil
	}
	for _, info := range targets {
		if info.Type != "iframe" {
			continue
		}
		html, err := s.frameDocument(info)
		if err != nil {
			s.logger.Warn("skipping unreadable iframe",
				zap.String("frame_url", info.URL), zap.Error(err))
			continue
		}
		docs = append(docs, html)
	}
	return docs, nil
}

func (s *Session) frameDocument(info *target.Info) (string, error) {
	frameCtx, cancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(info.TargetID))
	defer cancel()
	frameCtx, cancelTimeout := context.WithTimeout(frameCtx, 10*time.Second)
	defer cancelTimeout()

	var html string
	if err := chromedp.Run(frameCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Screenshot captures the current viewport as PNG for offline triage.
func (s *Session) Screenshot() ([]byte, error) {
	shotCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}
