package translate

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateSameLanguageShortCircuits(t *testing.T) {
	c := NewClient("http://127.0.0.1:1") // would fail if contacted
	got, err := c.Translate("ciao", "it", "it")
	require.NoError(t, err)
	assert.Equal(t, "ciao", got)

	got, err = c.Translate("", "it", "en")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestTranslateQueriesService(t *testing.T) {
	var gotQuery, gotPair string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotPair = r.URL.Query().Get("langpair")
		fmt.Fprint(w, `{"responseData":{"translatedText":"hello"},"responseStatus":200}`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Translate("ciao", "it", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "ciao", gotQuery)
	assert.Equal(t, "it|en", gotPair)
}

func TestTranslateSplitsLongText(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"responseData":{"translatedText":"x"},"responseStatus":200}`)
	}))
	defer srv.Close()

	long := strings.Repeat("parola ", 120) // well past one query limit
	got, err := NewClient(srv.URL).Translate(strings.TrimSpace(long), "it", "en")
	require.NoError(t, err)

	require.Greater(t, len(queries), 1)
	for _, q := range queries {
		assert.LessOrEqual(t, len(q), queryLimit)
	}
	assert.Equal(t, strings.TrimSpace(strings.Repeat("x ", len(queries))), got)
}

func TestTranslateServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"responseData":{"translatedText":"INVALID LANGUAGE PAIR"},"responseStatus":"403"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Translate("ciao", "it", "xx")
	assert.Error(t, err)

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv2.Close()

	_, err = NewClient(srv2.URL).Translate("ciao", "it", "en")
	assert.Error(t, err)
}

func TestSplitQueriesWordBoundaries(t *testing.T) {
	chunks := splitQueries("alpha beta gamma delta", 11)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, chunks)

	chunks = splitQueries("supercalifragilistic", 5)
	assert.Equal(t, []string{"supercalifragilistic"}, chunks)
}

func TestNoop(t *testing.T) {
	got, err := Noop{}.Translate("ciao", "it", "en")
	require.NoError(t, err)
	assert.Equal(t, "ciao", got)
}
