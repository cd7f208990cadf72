package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGetTool_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tool := NewHTTPGetTool()
	args, _ := json.Marshal(httpGetArgs{URL: srv.URL})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "ok", out.Data)
}

func TestHTTPGetTool_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	tool := NewHTTPGetTool()
	args, _ := json.Marshal(httpGetArgs{URL: srv.URL})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)
}

func TestHTTPGetTool_BodyTruncatedAtCap(t *testing.T) {
	big := make([]byte, httpGetMaxBody*2)
	for i := range big {
		big[i] = 'a'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	tool := NewHTTPGetTool()
	args, _ := json.Marshal(httpGetArgs{URL: srv.URL})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.LessOrEqual(t, len(out.Data), httpGetMaxBody)
}

func TestHTTPGetTool_InvalidArgsIsError(t *testing.T) {
	tool := NewHTTPGetTool()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`not json`))
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)
}
