package jira

import (
	"testing"

	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"
)

func doc(content ...*models.CommentNodeScheme) *models.CommentNodeScheme {
	return &models.CommentNodeScheme{Version: 1, Type: "doc", Content: content}
}

func text(s string, marks ...*models.MarkScheme) *models.CommentNodeScheme {
	return &models.CommentNodeScheme{Type: "text", Text: s, Marks: marks}
}

func TestADFToText(t *testing.T) {
	tests := []struct {
		name     string
		node     *models.CommentNodeScheme
		expected string
	}{
		{
			name:     "nil input",
			node:     nil,
			expected: "",
		},
		{
			name:     "empty doc",
			node:     doc(),
			expected: "",
		},
		{
			name: "simple paragraph",
			node: doc(&models.CommentNodeScheme{
				Type:    "paragraph",
				Content: []*models.CommentNodeScheme{text("Hello world")},
			}),
			expected: "Hello world",
		},
		{
			name: "two paragraphs",
			node: doc(
				&models.CommentNodeScheme{Type: "paragraph", Content: []*models.CommentNodeScheme{text("first")}},
				&models.CommentNodeScheme{Type: "paragraph", Content: []*models.CommentNodeScheme{text("second")}},
			),
			expected: "first\n\nsecond",
		},
		{
			name: "bold and code marks",
			node: doc(&models.CommentNodeScheme{
				Type: "paragraph",
				Content: []*models.CommentNodeScheme{
					text("bold", &models.MarkScheme{Type: "strong"}),
					text(" and "),
					text("code", &models.MarkScheme{Type: "code"}),
				},
			}),
			expected: "**bold** and `code`",
		},
		{
			name: "link mark",
			node: doc(&models.CommentNodeScheme{
				Type: "paragraph",
				Content: []*models.CommentNodeScheme{
					text("docs", &models.MarkScheme{
						Type:  "link",
						Attrs: map[string]interface{}{"href": "https://example.com"},
					}),
				},
			}),
			expected: "[docs](https://example.com)",
		},
		{
			name: "heading",
			node: doc(&models.CommentNodeScheme{
				Type:    "heading",
				Attrs:   map[string]interface{}{"level": float64(2)},
				Content: []*models.CommentNodeScheme{text("Section")},
			}),
			expected: "## Section",
		},
		{
			name: "bullet list",
			node: doc(&models.CommentNodeScheme{
				Type: "bulletList",
				Content: []*models.CommentNodeScheme{
					listItemNode("one"),
					listItemNode("two"),
				},
			}),
			expected: "- one\n- two",
		},
		{
			name: "code block",
			node: doc(&models.CommentNodeScheme{
				Type:    "codeBlock",
				Attrs:   map[string]interface{}{"language": "go"},
				Content: []*models.CommentNodeScheme{text("x := 1")},
			}),
			expected: "```go\nx := 1\n```",
		},
		{
			name:     "unsupported node is not dropped silently",
			node:     doc(&models.CommentNodeScheme{Type: "mediaSingle"}),
			expected: "[unsupported: mediaSingle]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adfToText(tt.node)
			if got != tt.expected {
				t.Errorf("adfToText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTextToADF(t *testing.T) {
	node := textToADF("# Title\n\nintro text\n\n- one\n- two\n\n```go\nx := 1\n```")

	if node.Type != "doc" || node.Version != 1 {
		t.Fatalf("expected doc node, got %+v", node)
	}
	if len(node.Content) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(node.Content))
	}

	if node.Content[0].Type != "heading" {
		t.Errorf("block 0: expected heading, got %s", node.Content[0].Type)
	}
	if node.Content[1].Type != "paragraph" {
		t.Errorf("block 1: expected paragraph, got %s", node.Content[1].Type)
	}
	if node.Content[2].Type != "bulletList" || len(node.Content[2].Content) != 2 {
		t.Errorf("block 2: expected bulletList with 2 items, got %+v", node.Content[2])
	}
	if node.Content[3].Type != "codeBlock" {
		t.Errorf("block 3: expected codeBlock, got %s", node.Content[3].Type)
	}
}

func TestTextToADFRoundTrip(t *testing.T) {
	originals := []string{
		"plain paragraph",
		"# Title\n\nintro text",
		"- one\n- two",
		"```go\nx := 1\n```",
	}
	for _, original := range originals {
		got := adfToText(textToADF(original))
		if got != original {
			t.Errorf("round trip changed text:\n got: %q\nwant: %q", got, original)
		}
	}
}

func TestTextToADFOrderedList(t *testing.T) {
	node := textToADF("1. first\n2. second")
	if len(node.Content) != 1 || node.Content[0].Type != "orderedList" {
		t.Fatalf("expected a single orderedList, got %+v", node.Content)
	}
	if len(node.Content[0].Content) != 2 {
		t.Errorf("expected 2 items, got %d", len(node.Content[0].Content))
	}
}

func TestTextToADFEmpty(t *testing.T) {
	node := textToADF("")
	if node.Type != "doc" {
		t.Fatalf("expected doc node, got %s", node.Type)
	}
	if len(node.Content) != 0 {
		t.Errorf("expected no blocks, got %d", len(node.Content))
	}
}
