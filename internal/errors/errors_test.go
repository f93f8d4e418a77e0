package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	SetColor(false)
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	tests := []struct {
		code    string
		wantMsg string
		wantCat Category
	}{
		{"D001", "Config file unreadable", CategoryConfig},
		{"D011", "Unknown element", CategoryPage},
		{"D020", "Journal record corrupt", CategoryJournal},
		{"D031", "Surface rejected", CategoryProtocol},
		{"D099", "Unknown error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.wantCat, err.Category)
		})
	}
}

func TestRegistryCodesAreOrderedAndComplete(t *testing.T) {
	codes := Codes()
	require.NotEmpty(t, codes)
	for i, code := range codes {
		tmpl, ok := Lookup(code)
		require.True(t, ok)
		assert.NotEmpty(t, tmpl.Message, code)
		assert.NotEmpty(t, tmpl.Category, code)
		if i > 0 {
			assert.Less(t, codes[i-1], code)
		}
	}
}

func TestErrorString(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := New("D010").Wrap(cause)
	assert.Equal(t, "D010: Page is not well-formed XML: unexpected EOF", err.Error())

	err.Location = &Location{File: "shop.xml", Line: 4}
	assert.Equal(t, "shop.xml:4: D010: Page is not well-formed XML: unexpected EOF", err.Error())
	assert.Equal(t, err.Error(), err.FormatCompact())

	assert.Equal(t, "bad thing", Newf(CategoryCLI, "bad %s", "thing").Error())
}

func TestWrapAndMatch(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("dump: %w", New("D041").Wrap(cause))

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, New("D041"))
	assert.NotErrorIs(t, err, New("D040"))
	assert.Equal(t, "D041", Code(err))
	assert.Empty(t, Code(cause))

	var de *DelphiError
	require.ErrorAs(t, err, &de)
	assert.Same(t, de, FromError(err, "D001"), "existing DelphiError is reused")

	wrapped := FromError(cause, "D001")
	assert.Equal(t, "D001", wrapped.Code)
	assert.Same(t, cause, wrapped.Unwrap())
	assert.Nil(t, FromError(nil, "D001"))
}

func TestWithLocationReadsContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.xml")
	require.NoError(t, os.WriteFile(path, []byte("<page>\n<body>\n<blink/>\n</body>\n</page>\n"), 0o644))

	err := New("D011").WithLocation(path, 3, 2).WithSuggestion("use div")
	assert.Equal(t, []string{"<page>", "<body>", "<blink/>", "</body>", "</page>"}, err.Context)

	out := err.Format()
	assert.Contains(t, out, "ERROR D011: Unknown element")
	assert.Contains(t, out, path+":3:2")
	assert.Contains(t, out, "→    3 │ <blink/>")
	assert.Contains(t, out, "│  ^")
	assert.Contains(t, out, "Hint: use div")

	missing := New("D011").WithLocation(filepath.Join(dir, "nope.xml"), 1, 0)
	assert.Nil(t, missing.Context)
}

func TestFormatJSON(t *testing.T) {
	err := New("D003").
		WithMessage("debug.addr %q is not host:port", "nope").
		WithSuggestion("use 127.0.0.1:7071").
		Wrap(stderrors.New("missing port"))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(err.FormatJSON()), &got))
	assert.Equal(t, "D003", got["code"])
	assert.Equal(t, "config", got["category"])
	assert.Equal(t, `debug.addr "nope" is not host:port`, got["message"])
	assert.Equal(t, "missing port", got["cause"])
	assert.NotContains(t, got, "location")
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("load: %w", New("D012").WithDetail("no such file")))
	assert.Contains(t, buf.String(), "ERROR D012: Page not found")
	assert.Contains(t, buf.String(), "no such file")

	buf.Reset()
	Fprint(&buf, stderrors.New("plain"))
	assert.Equal(t, "ERROR: plain", strings.TrimSpace(buf.String()))
}

func TestWrapText(t *testing.T) {
	assert.Nil(t, wrapText("", 10))
	assert.Equal(t, []string{"short"}, wrapText("short", 10))
	assert.Equal(t, []string{"one two", "three four"}, wrapText("one two three four", 10))
}
