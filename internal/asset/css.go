package asset

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecapture/internal/model"
)

// cssFetchLimit bounds concurrent reference downloads per stylesheet.
const cssFetchLimit = 4

// cssURLPattern matches url(...) with single, double or no quotes.
// Submatches 1, 2 and 3 hold the reference for each quoting style.
var cssURLPattern = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^'"\s)][^)]*?))\s*\)`)

// cssRef is one url(...) occurrence in a stylesheet.
type cssRef struct {
	start, end int
	quote      string
	ref        string

	// replacement is the rewritten token, or "" to keep the original text.
	replacement string
}

// RewriteCSS localizes every url(...) reference in css.
//
// References are resolved against sourceURL, downloaded as fonts and
// replaced in place with a path relative to the stylesheet directory.
// A reference that cannot be resolved or fetched keeps its original text,
// so one broken font never costs the rest of the stylesheet.
func (p *Pipeline) RewriteCSS(ctx context.Context, css, sourceURL string) string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return css
	}

	refs := findCSSRefs(css)
	if len(refs) == 0 {
		return css
	}

	var g errgroup.Group
	g.SetLimit(cssFetchLimit)
	for i := range refs {
		ref := &refs[i]
		if skipCSSRef(ref.ref) {
			continue
		}
		g.Go(func() error {
			abs, err := base.Parse(ref.ref)
			if err != nil {
				return nil
			}
			local, err := p.Fetch(ctx, abs.String(), model.AssetFont)
			if err != nil {
				p.logger.Warn("failed to localize stylesheet reference",
					"stylesheet", sourceURL,
					"url", abs.String(),
					"error", err,
				)
				return nil
			}
			ref.replacement = "url(" + ref.quote + relativeToCSS(local) + ref.quote + ")"
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks record failures in refs

	var b strings.Builder
	b.Grow(len(css))
	last := 0
	for _, ref := range refs {
		if ref.replacement == "" {
			continue
		}
		b.WriteString(css[last:ref.start])
		b.WriteString(ref.replacement)
		last = ref.end
	}
	b.WriteString(css[last:])
	return b.String()
}

// findCSSRefs returns the url(...) occurrences of css in order.
func findCSSRefs(css string) []cssRef {
	matches := cssURLPattern.FindAllStringSubmatchIndex(css, -1)
	refs := make([]cssRef, 0, len(matches))
	for _, m := range matches {
		ref := cssRef{start: m[0], end: m[1]}
		switch {
		case m[2] >= 0:
			ref.quote, ref.ref = "'", css[m[2]:m[3]]
		case m[4] >= 0:
			ref.quote, ref.ref = `"`, css[m[4]:m[5]]
		case m[6] >= 0:
			ref.ref = css[m[6]:m[7]]
		}
		ref.ref = strings.TrimSpace(ref.ref)
		refs = append(refs, ref)
	}
	return refs
}

// skipCSSRef reports references that are already local to the document.
func skipCSSRef(ref string) bool {
	lower := strings.ToLower(ref)
	return ref == "" ||
		strings.HasPrefix(ref, "#") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "about:")
}

// relativeToCSS converts an output-relative asset path into one relative to
// the stylesheet directory, e.g. assets/fonts/a.woff becomes ../fonts/a.woff.
func relativeToCSS(local string) string {
	return "../" + strings.TrimPrefix(local, model.AssetRoot+"/")
}
