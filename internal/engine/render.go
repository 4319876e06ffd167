package engine

import (
	"strings"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// defaultAuthorName is substituted for {name} when the event carries none.
const defaultAuthorName = "there"

// RenderTemplate substitutes the known placeholders into template. Unknown
// placeholders are left as literal text rather than dropped, so a typo in a
// rule never silently truncates the outgoing message.
//
// Placeholders: {name}, {text}, {platform}.
func RenderTemplate(template string, event models.Event) string {
	name := event.AuthorName
	if name == "" {
		name = defaultAuthorName
	}

	rendered := strings.ReplaceAll(template, "{name}", name)
	rendered = strings.ReplaceAll(rendered, "{text}", event.Text)
	rendered = strings.ReplaceAll(rendered, "{platform}", event.Platform)

	return rendered
}
