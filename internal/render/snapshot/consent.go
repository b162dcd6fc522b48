package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// consentKeywords are matched case-insensitively against class and id attributes
var consentKeywords = []string{
	"cookie",
	"consent",
	"gdpr",
	"privacy-banner",
	"cookie-banner",
	"cookie-consent",
	"cookie-notice",
}

// consentFlags are seeded as cookies and as local/session storage items
var consentFlags = []Cookie{
	{Name: "cookie_consent", Value: "accepted"},
	{Name: "cookieconsent_status", Value: "allow"},
	{Name: "consent", Value: "yes"},
	{Name: "gdpr_consent", Value: "accepted"},
	{Name: "cookie_agreed", Value: "2"},
	{Name: "cookies_accepted", Value: "true"},
	{Name: "CookieConsent", Value: "true"},
	{Name: "cookielawinfo-checkbox-necessary", Value: "yes"},
}

const hiddenDeclarations = "display: none !important; visibility: hidden !important; " +
	"height: 0 !important; max-height: 0 !important; overflow: hidden !important; " +
	"position: absolute !important; top: -99999px !important; left: -99999px !important; " +
	"z-index: -2147483647 !important;"

// consentSelector matches every element except html and body whose class or id contains a keyword
func consentSelector() string {
	parts := make([]string, 0, len(consentKeywords)*2)
	for _, kw := range consentKeywords {
		for _, attr := range []string{"class", "id"} {
			parts = append(parts, fmt.Sprintf(`[%s*=%q i]:not(html):not(body)`, attr, kw))
		}
	}
	return strings.Join(parts, ", ")
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func hideStyleScript() string {
	css := consentSelector() + " { " + hiddenDeclarations + " }"
	return fmt.Sprintf(`(() => {
  const style = document.createElement('style');
  style.setAttribute('data-snapshot', 'consent');
  style.textContent = %s;
  (document.head || document.documentElement).appendChild(style);
  return true;
})()`, jsString(css))
}

func seedStorageScript() string {
	items := make(map[string]string, len(consentFlags))
	for _, c := range consentFlags {
		items[c.Name] = c.Value
	}
	payload, _ := json.Marshal(items)

	return fmt.Sprintf(`((items) => {
  const seed = (name) => {
    try {
      const store = window[name];
      for (const [k, v] of Object.entries(items)) store.setItem(k, v);
      return true;
    } catch (e) {
      return false;
    }
  };
  return { local: seed('localStorage'), session: seed('sessionStorage') };
})(%s)`, payload)
}

func removeBannersScript() string {
	return fmt.Sprintf(`((sel) => {
  let removed = 0;
  document.querySelectorAll(sel).forEach((el) => { el.remove(); removed++; });
  return removed;
})(%s)`, jsString(consentSelector()))
}

// consentStep is one suppression step. Steps that only sleep are unbounded by ScriptTimeout.
type consentStep struct {
	name      string
	unbounded bool
	run       func(ctx context.Context, sess Session, pageURL string, log *zap.Logger) error
}

func (r *Renderer) consentSteps() []consentStep {
	return []consentStep{
		{name: "hide-style", run: func(ctx context.Context, sess Session, _ string, _ *zap.Logger) error {
			return sess.Evaluate(ctx, hideStyleScript(), nil)
		}},
		{name: "seed-cookies", run: func(ctx context.Context, sess Session, pageURL string, _ *zap.Logger) error {
			return sess.SetCookies(ctx, pageURL, consentFlags)
		}},
		{name: "seed-storage", run: func(ctx context.Context, sess Session, _ string, log *zap.Logger) error {
			var seeded struct {
				Local   bool `json:"local"`
				Session bool `json:"session"`
			}
			if err := sess.Evaluate(ctx, seedStorageScript(), &seeded); err != nil {
				return err
			}
			if !seeded.Local || !seeded.Session {
				log.Debug("Storage partially unavailable",
					zap.Bool("local_storage", seeded.Local),
					zap.Bool("session_storage", seeded.Session))
			}
			return nil
		}},
		{name: "remove-banners", run: func(ctx context.Context, sess Session, _ string, log *zap.Logger) error {
			var removed int
			if err := sess.Evaluate(ctx, removeBannersScript(), &removed); err != nil {
				return err
			}
			if removed > 0 {
				log.Debug("Removed consent elements", zap.Int("count", removed))
			}
			return nil
		}},
		{name: "settle", unbounded: true, run: func(ctx context.Context, _ Session, _ string, _ *zap.Logger) error {
			return sleepCtx(ctx, r.cfg.ConsentSettle)
		}},
	}
}

// suppressConsent runs every step. A failing step is logged and the next one still runs.
func (r *Renderer) suppressConsent(ctx context.Context, sess Session, pageURL string, log *zap.Logger) {
	for _, step := range r.consentSteps() {
		stepCtx, cancel := ctx, context.CancelFunc(func() {})
		if !step.unbounded {
			stepCtx, cancel = context.WithTimeout(ctx, r.cfg.ScriptTimeout)
		}
		err := step.run(stepCtx, sess, pageURL, log)
		cancel()
		if err != nil {
			log.Warn("Consent suppression step failed",
				zap.String("step", step.name),
				zap.Error(err))
		}
	}
}
