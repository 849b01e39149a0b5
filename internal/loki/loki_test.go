package loki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountLokiLogs(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/loki/api/v1/query", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(gotQuery, "StreamHandler") {
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000.1,"42"]}]}}`))
	}))
	defer server.Close()

	l := NewLoki(server.URL, "stremio-cartoony")

	catalogs, err := l.GetCatalogs24(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, catalogs)
	assert.Contains(t, gotQuery, `service_name="stremio-cartoony"`)
	assert.Contains(t, gotQuery, "CatalogHandler")

	streams, err := l.GetStreams24(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, streams)
}

func TestCountLokiLogs_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status code", http.StatusBadGateway, ``},
		{"failed status", http.StatusOK, `{"status":"error","data":{}}`},
		{"matrix result", http.StatusOK, `{"status":"success","data":{"resultType":"matrix","result":[]}}`},
		{"non string value", http.StatusOK, `{"status":"success","data":{"resultType":"vector","result":[{"value":[1,2]}]}}`},
		{"malformed json", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewLoki(server.URL, "svc").GetCatalogs24(context.Background())
			assert.Error(t, err)
		})
	}
}
