package browser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// webdriverOverride hides the automation marker before any page script runs.
const webdriverOverride = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// session owns one launched browser instance configured with a single
// identity. A session is used by exactly one worker and torn down on every
// exit path.
type session struct {
	identity SessionIdentity
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// newSession launches a browser with the identity's fingerprint parameters
// and anti-detection flags, opens a blank page, and installs the webdriver
// override.
func newSession(identity SessionIdentity, headless bool) (*session, error) {
	l := launcher.New().
		Headless(headless).
		UserDataDir(identity.ProfileDir).
		Set(flags.Flag("no-sandbox")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-extensions")).
		Set(flags.Flag("no-first-run")).
		Set(flags.Flag("no-default-browser-check")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("user-agent"), identity.UserAgent).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", identity.Width, identity.Height)).
		Set(flags.Flag("remote-debugging-port"), strconv.Itoa(identity.DebugPort))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("chrome failed to start: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("chrome not reachable: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("session not created: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             identity.Width,
		Height:            identity.Height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		_ = page.Close()
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{
		Source: webdriverOverride,
	}).Call(page); err != nil {
		_ = page.Close()
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("install stealth script: %w", err)
	}

	return &session{
		identity: identity,
		launcher: l,
		browser:  b,
		page:     page,
	}, nil
}

// navigate loads a URL and waits for the load event.
func (s *session) navigate(url string, timeout time.Duration) error {
	page := s.page.Timeout(timeout)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// waitElementX waits for an element matched by the XPath expression.
func (s *session) waitElementX(xpath string, timeout time.Duration) (*rod.Element, error) {
	return s.page.Timeout(timeout).ElementX(xpath)
}

// html returns the current page source.
func (s *session) html() (string, error) {
	return s.page.HTML()
}

// currentURL returns the page's current location.
func (s *session) currentURL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// clearState removes cookies and local storage so consecutive searches in
// one session do not accumulate identifying state.
func (s *session) clearState() {
	_ = proto.NetworkClearBrowserCookies{}.Call(s.page)
	_, _ = s.page.Eval(`() => { try { localStorage.clear(); sessionStorage.clear(); } catch (e) {} }`)
}

// close tears the session down: page, browser, and the launched process.
func (s *session) close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

// resolveHref extracts a navigable link from an element: a direct href when
// present, otherwise empty (caller falls back to a scripted click).
func resolveHref(el *rod.Element) string {
	href, err := el.Attribute("href")
	if err != nil || href == nil {
		return ""
	}
	return strings.TrimSpace(*href)
}
