package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	doc := `<html><head><title>t</title><style>p{color:red}</style></head>
<body><h1>Heading</h1><p>First   paragraph.</p><script>alert(1)</script>
<p>Second paragraph.</p></body></html>`

	assert.Equal(t, "Heading First paragraph. Second paragraph.", ExtractText(doc))
}

func TestExtractText_PlainText(t *testing.T) {
	assert.Equal(t, "just some words", ExtractText("just   some\n words"))
}

func TestTruncate(t *testing.T) {
	short := "abc"
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("x", MaxTextLen+10)
	got := Truncate(long)
	assert.Len(t, got, MaxTextLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncate_CountsRunesNotBytes(t *testing.T) {
	long := strings.Repeat("日", MaxTextLen+50)
	got := Truncate(long)
	require.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxTextLen, utf8.RuneCountInString(strings.TrimSuffix(got, "...")))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncate_ExactRuneLengthKept(t *testing.T) {
	exact := strings.Repeat("é", MaxTextLen)
	assert.Equal(t, exact, Truncate(exact))
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>bug report body</p></body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "bug report body", text)
}

func TestHTTPFetcher_Fetch_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPFetcher_Fetch_TruncatesLongPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<body>" + strings.Repeat("word ", 1000) + "</body>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, text, MaxTextLen+3)
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestHTTPFetcher_Fetch_BadHost(t *testing.T) {
	f := NewHTTPFetcher(1 * time.Second)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	assert.Error(t, err)
}
