package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading and paragraph", "# Title\n\nSome *emphasis* and **bold**.", "Title\nSome emphasis and bold."},
		{"link keeps label", "See [the docs](https://example.com) now.", "See the docs now."},
		{"inline code", "Call `Run()` first.", "Call Run() first."},
		{"list", "- one\n- two\n", "one\ntwo"},
		{"fenced code", "```go\nfmt.Println(1)\n```\n", "fmt.Println(1)"},
		{"raw html dropped", "<div>hidden</div>\n\nVisible", "Visible"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkdownToText(tt.in))
		})
	}
}

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata([]byte("title: X\ncategory: blog\n"))
	assert.NoError(t, err)
	assert.Equal(t, StatusPublished, meta.Status)

	published, err := meta.PublishTime()
	assert.NoError(t, err)
	assert.True(t, published.IsZero())
}
