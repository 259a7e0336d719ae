package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMarkdown(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "valid utf8 returned verbatim",
			data: []byte("# 标题\n\nplain text"),
			want: "# 标题\n\nplain text",
		},
		{
			name: "gbk bytes decoded",
			data: []byte{0xD6, 0xD0, 0xCE, 0xC4}, // 中文 in GBK / GB18030
			want: "中文",
		},
		{
			name: "latin1 fallback never fails",
			data: []byte{0xFF, 'a'},
			want: "ÿa",
		},
		{
			name: "empty input",
			data: nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeMarkdown(tt.data))
		})
	}
}

func TestExtractMarkdownFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Hello\n\nworld"), 0o600))

	got, err := ExtractMarkdownFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n\nworld", got)

	_, err = ExtractMarkdownFile(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}
