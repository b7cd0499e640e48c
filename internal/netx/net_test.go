package netx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody, gotCT, gotAuth, gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotAuth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"pong"}`))
		}))
		defer ts.Close()

		var out struct {
			Name string `json:"name"`
		}
		err := DoJSON(context.Background(), ts.Client(), http.MethodPost, ts.URL, "tok", map[string]string{"name": "ping"}, &out)
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "application/json", gotCT)
		assert.Equal(t, "Bearer tok", gotAuth)
		assert.JSONEq(t, `{"name":"ping"}`, gotBody)
		assert.Equal(t, "pong", out.Name)
	})

	t.Run("no body no auth", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Empty(t, r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		var out map[string]any
		require.NoError(t, DoJSON(context.Background(), ts.Client(), http.MethodGet, ts.URL, "", nil, &out))
		assert.Nil(t, out)
	})

	t.Run("error status carries server message", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
		}))
		defer ts.Close()

		err := DoJSON(context.Background(), ts.Client(), http.MethodGet, ts.URL, "", nil, nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.Code)
		assert.Equal(t, "Unauthorized", se.Message)
	})

	t.Run("error status with plain body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		err := DoJSON(context.Background(), ts.Client(), http.MethodGet, ts.URL, "", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("bad response body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer ts.Close()

		var out map[string]any
		err := DoJSON(context.Background(), ts.Client(), http.MethodGet, ts.URL, "", nil, &out)
		require.Error(t, err)
	})

	t.Run("bad url", func(t *testing.T) {
		err := DoJSON(context.Background(), http.DefaultClient, http.MethodGet, "http://[::1", "", nil, nil)
		require.Error(t, err)
	})
}
