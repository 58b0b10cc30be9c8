package services

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// postRenderer never emits raw HTML from a post body; goldmark replaces it with a comment
// unless html.WithUnsafe is set.
var postRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func RenderPostBody(body string) (string, error) {
	var buf bytes.Buffer
	if err := postRenderer.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
