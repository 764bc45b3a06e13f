package taghandler

import (
	"fmt"
	"log/slog"
)

const linkLogPrefix = "taghandler:link"

// LinkHandler handles <link>. A stylesheet link with an href contributes that
// href as a CSS resource; any other link contributes nothing.
type LinkHandler struct{}

// HandleTag implements Handler.
func (LinkHandler) HandleTag(attrs []Attribute, _ string) RenderResult {
	slog.Debug(fmt.Sprintf("%s - rendering link with %d attributes", linkLogPrefix, len(attrs)))

	m := Attrs(attrs)
	if href := m["href"]; href != "" && m["rel"] == "stylesheet" {
		return RenderResult{CSSResource: href}
	}
	return RenderResult{}
}
