package jira

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"
)

// Jira Cloud v3 stores descriptions as Atlassian Document Format trees. The
// canonical description is markdown-flavored plain text, so descriptions are
// rendered to text on read and rebuilt as ADF on write. The round trip is
// lossy for rich content (tables, media); those nodes render as placeholders
// and never survive a board round trip.

// adfToText renders an ADF node tree as markdown-flavored text. Returns the
// empty string for nil input.
func adfToText(node *models.CommentNodeScheme) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, node, 0, false)
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(b *strings.Builder, node *models.CommentNodeScheme, depth int, inList bool) {
	if node == nil {
		return
	}

	switch node.Type {
	case "doc":
		renderChildren(b, node, depth, false)

	case "paragraph":
		renderChildren(b, node, depth, false)
		if inList {
			b.WriteString("\n")
		} else {
			b.WriteString("\n\n")
		}

	case "heading":
		level := attrInt(node.Attrs, "level", 1)
		b.WriteString(strings.Repeat("#", level))
		b.WriteString(" ")
		renderChildren(b, node, depth, false)
		b.WriteString("\n\n")

	case "text":
		b.WriteString(applyMarks(node.Text, node.Marks))

	case "hardBreak":
		b.WriteString("\n")

	case "bulletList":
		for _, child := range node.Content {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString("- ")
			renderListItem(b, child, depth+1)
		}

	case "orderedList":
		for i, child := range node.Content {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(strconv.Itoa(i+1) + ". ")
			renderListItem(b, child, depth+1)
		}

	case "listItem":
		renderChildren(b, node, depth, true)

	case "codeBlock":
		lang := attrString(node.Attrs, "language", "")
		b.WriteString("```" + lang + "\n")
		renderChildren(b, node, depth, false)
		b.WriteString("\n```\n\n")

	case "blockquote":
		var inner strings.Builder
		renderChildren(&inner, node, depth, false)
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			b.WriteString("> " + line + "\n")
		}
		b.WriteString("\n")

	case "rule":
		b.WriteString("---\n\n")

	case "inlineCard":
		b.WriteString(attrString(node.Attrs, "url", ""))

	default:
		// Don't silently drop content.
		b.WriteString(fmt.Sprintf("[unsupported: %s]", node.Type))
		renderChildren(b, node, depth, false)
	}
}

func renderChildren(b *strings.Builder, node *models.CommentNodeScheme, depth int, inList bool) {
	for _, child := range node.Content {
		renderNode(b, child, depth, inList)
	}
}

func renderListItem(b *strings.Builder, node *models.CommentNodeScheme, depth int) {
	if node == nil {
		b.WriteString("\n")
		return
	}
	for i, child := range node.Content {
		if i == 0 && child.Type == "paragraph" {
			// First paragraph inline with the bullet.
			renderChildren(b, child, depth, true)
			b.WriteString("\n")
		} else {
			renderNode(b, child, depth, true)
		}
	}
}

func applyMarks(text string, marks []*models.MarkScheme) string {
	for _, mark := range marks {
		switch mark.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			if href := markHref(mark); href != "" {
				text = "[" + text + "](" + href + ")"
			}
		}
	}
	return text
}

func markHref(mark *models.MarkScheme) string {
	if mark.Attrs == nil {
		return ""
	}
	href, _ := mark.Attrs["href"].(string)
	return href
}

func attrString(attrs map[string]interface{}, key, fallback string) string {
	if attrs == nil {
		return fallback
	}
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return fallback
}

func attrInt(attrs map[string]interface{}, key string, fallback int) int {
	if attrs == nil {
		return fallback
	}
	switch n := attrs[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}

// textToADF builds an ADF document from markdown-flavored text. Recognizes
// headings, bullet and ordered lists, and fenced code blocks; everything else
// becomes plain paragraphs. Inline marks are not reconstructed.
func textToADF(text string) *models.CommentNodeScheme {
	doc := &models.CommentNodeScheme{Version: 1, Type: "doc"}
	lines := strings.Split(text, "\n")

	var paragraph []string
	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		doc.Content = append(doc.Content, paragraphNode(strings.Join(paragraph, "\n")))
		paragraph = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()

		case strings.HasPrefix(trimmed, "```"):
			flush()
			lang := strings.TrimPrefix(trimmed, "```")
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```"); i++ {
				code = append(code, lines[i])
			}
			doc.Content = append(doc.Content, codeBlockNode(strings.Join(code, "\n"), lang))

		case strings.HasPrefix(trimmed, "#"):
			flush()
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' && level < 6 {
				level++
			}
			doc.Content = append(doc.Content, headingNode(strings.TrimSpace(trimmed[level:]), level))

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flush()
			list := &models.CommentNodeScheme{Type: "bulletList"}
			for ; i < len(lines); i++ {
				t := strings.TrimSpace(lines[i])
				if !strings.HasPrefix(t, "- ") && !strings.HasPrefix(t, "* ") {
					i--
					break
				}
				list.Content = append(list.Content, listItemNode(t[2:]))
			}
			doc.Content = append(doc.Content, list)

		case isOrderedItem(trimmed):
			flush()
			list := &models.CommentNodeScheme{Type: "orderedList"}
			for ; i < len(lines); i++ {
				t := strings.TrimSpace(lines[i])
				if !isOrderedItem(t) {
					i--
					break
				}
				list.Content = append(list.Content, listItemNode(t[strings.Index(t, ". ")+2:]))
			}
			doc.Content = append(doc.Content, list)

		default:
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()

	return doc
}

func isOrderedItem(line string) bool {
	dot := strings.Index(line, ". ")
	if dot <= 0 {
		return false
	}
	_, err := strconv.Atoi(line[:dot])
	return err == nil
}

func paragraphNode(text string) *models.CommentNodeScheme {
	return &models.CommentNodeScheme{
		Type:    "paragraph",
		Content: []*models.CommentNodeScheme{{Type: "text", Text: text}},
	}
}

func headingNode(text string, level int) *models.CommentNodeScheme {
	return &models.CommentNodeScheme{
		Type:    "heading",
		Attrs:   map[string]interface{}{"level": level},
		Content: []*models.CommentNodeScheme{{Type: "text", Text: text}},
	}
}

func codeBlockNode(code, lang string) *models.CommentNodeScheme {
	node := &models.CommentNodeScheme{
		Type:    "codeBlock",
		Content: []*models.CommentNodeScheme{{Type: "text", Text: code}},
	}
	if lang != "" {
		node.Attrs = map[string]interface{}{"language": lang}
	}
	return node
}

func listItemNode(text string) *models.CommentNodeScheme {
	return &models.CommentNodeScheme{
		Type:    "listItem",
		Content: []*models.CommentNodeScheme{paragraphNode(text)},
	}
}
