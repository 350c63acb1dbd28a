package dataset

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validContent = `{
	"meta_data": {
		"properties": 10,
		"triples": 200,
		"classes": 5,
		"endpoint": "https://example.org/sparql",
		"crawl_date": "2019-01-01"
	},
	"classes": {}
}`

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "valid document",
			content: validContent,
		},
		{
			name:    "not json",
			content: `{"meta_data":`,
			wantMsg: "unexpected EOF",
		},
		{
			name:    "missing meta_data",
			content: `{"classes": {}}`,
			wantMsg: "meta_data does not exist",
		},
		{
			name:    "array document",
			content: `[1, 2, 3]`,
			wantMsg: "meta_data does not exist",
		},
		{
			name:    "meta_data not an object",
			content: `{"meta_data": "x"}`,
			wantMsg: "meta_data is invalid type",
		},
		{
			name:    "empty meta_data reports first key",
			content: `{"meta_data": {}}`,
			wantMsg: "properties does not exist",
		},
		{
			name:    "missing triples",
			content: `{"meta_data": {"properties": 1, "classes": 1, "endpoint": "e", "crawl_date": "d"}}`,
			wantMsg: "triples does not exist",
		},
		{
			name:    "classes has wrong type",
			content: `{"meta_data": {"properties": 1, "triples": 1, "classes": "5", "endpoint": "e", "crawl_date": "d"}}`,
			wantMsg: "classes is invalid type",
		},
		{
			name:    "endpoint has wrong type",
			content: `{"meta_data": {"properties": 1, "triples": 1, "classes": 1, "endpoint": 1, "crawl_date": "d"}}`,
			wantMsg: "endpoint is invalid type",
		},
		{
			name:    "earlier key wins over later key",
			content: `{"meta_data": {"properties": "1", "triples": 1, "classes": 1, "endpoint": "e"}}`,
			wantMsg: "properties is invalid type",
		},
		{
			name:    "integer beyond float precision",
			content: `{"meta_data": {"properties": 12345678901234567891, "triples": 1, "classes": 1, "endpoint": "e", "crawl_date": "d"}}`,
		},
		{
			name:    "fractional triples",
			content: `{"meta_data": {"properties": 1, "triples": 1.5, "classes": 1, "endpoint": "e", "crawl_date": "d"}}`,
			wantMsg: "triples is invalid type",
		},
		{
			name:    "missing crawl_date",
			content: `{"meta_data": {"properties": 1, "triples": 1, "classes": 1, "endpoint": "e"}}`,
			wantMsg: "crawl_date does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent([]byte(tt.content))

			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Message, tt.wantMsg)
		})
	}
}

func TestNewPath(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		path, err := NewPath()
		require.NoError(t, err)
		assert.Len(t, path, 32)
		assert.NotContains(t, path, "=")

		raw, err := base64.RawURLEncoding.DecodeString(path)
		require.NoError(t, err)
		assert.Len(t, raw, 24)

		_, dup := seen[path]
		assert.False(t, dup)
		seen[path] = struct{}{}
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "species.sbm", "species"},
		{"no extension", "species", "species"},
		{"directories stripped", "/tmp/upload/species.json", "species"},
		{"only last extension", "archive.tar.gz", "archive.tar"},
		{"truncated to 32 runes", "abcdefghijklmnopqrstuvwxyz0123456789.json", "abcdefghijklmnopqrstuvwxyz012345"},
		{"multibyte truncation", "データセットデータセットデータセットデータセットデータセットデータセット.json", "データセットデータセットデータセットデータセットデータセットデー"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromFilename(tt.filename))
		})
	}
}

func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))

	ds, err := New(7, TitleFromFilename("graph.json"), []byte(validContent), now)
	require.NoError(t, err)

	assert.Equal(t, int64(7), ds.UserID)
	assert.Equal(t, "graph", ds.Title)
	assert.Len(t, ds.Path, 32)
	assert.False(t, ds.IsPublic)
	assert.Equal(t, time.UTC, ds.UploadAt.Location())
	assert.True(t, now.Equal(ds.UploadAt))
	assert.JSONEq(t, validContent, string(ds.Content))

	_, err = New(7, "graph", []byte(`{}`), now)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "meta_data does not exist", verr.Message)
}
