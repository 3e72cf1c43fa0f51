package analysis

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

// The formatter handles only the markdown subset the analysis prompt allows
// the model to emit. Rules run in a fixed order; later rules assume the
// earlier cleanup already happened. Input is HTML-escaped before any rule
// runs, so rule output is the only markup that can reach the fragment.
var (
	bulletGlyphRe = regexp.MustCompile(`(?m)^[ \t]*[•·▪◦][ \t]*`)
	horizontalRe  = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$\n?`)
	numberedRe    = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,2}[ \t]+)?(\d+\.[ \t]+[^\n]+?)[ \t]*$`)
	subHeadingRe  = regexp.MustCompile(`(?m)^[ \t]*#{3,4}[ \t]*([^\n]+?)[ \t]*$`)
	labelChipRe   = regexp.MustCompile(`\*\*([^*\n]+?)[:：]\*\*`)
	boldRe        = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	dashLineRe    = regexp.MustCompile(`(?m)^[ \t]*-[ \t]+([^\n]+)$`)
	manyBlanksRe  = regexp.MustCompile(`\n{3,}`)
)

// Format converts the limited markdown subset used by AI output into a
// trusted HTML fragment. Pure function; safe to call concurrently.
func Format(text string) template.HTML {
	s := html.EscapeString(text)

	s = bulletGlyphRe.ReplaceAllString(s, "")
	s = horizontalRe.ReplaceAllString(s, "")
	s = numberedRe.ReplaceAllString(s, `<h3 class="analysis-heading">$1</h3>`)
	s = subHeadingRe.ReplaceAllString(s, `<h4 class="analysis-subheading">$1</h4>`)
	s = labelChipRe.ReplaceAllString(s, `<span class="label-chip">$1</span>`)
	s = boldRe.ReplaceAllString(s, `<strong>$1</strong>`)
	s = dashLineRe.ReplaceAllString(s, `<div class="list-item">$1</div>`)

	s = manyBlanksRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n\n", `</p><p class="analysis-text">`)
	s = strings.ReplaceAll(s, "\n", "<br>")

	return template.HTML(`<p class="analysis-text">` + s + `</p>`)
}
