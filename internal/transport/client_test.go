package transport_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hlspiped/internal/logger"
	"hlspiped/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, "manifest body")
	}))
	defer server.Close()

	client := transport.NewClient(logger.Nop(), "test-agent", "")

	content, effective, err := client.FetchText(context.Background(), server.URL+"/playlist.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "manifest body", content)
	assert.Equal(t, server.URL+"/playlist.m3u8", effective)
}

func TestFetchText_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := transport.NewClient(logger.Nop(), "", "")

	_, _, err := client.FetchText(context.Background(), server.URL)
	require.Error(t, err)
	fe, ok := transport.IsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, fe.Status)
	assert.Equal(t, server.URL, fe.URL)
}

func TestFetchText_RoutesThroughProxyPrefix(t *testing.T) {
	const target = "http://upstream.example.com/live/playlist.m3u8"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxy", r.URL.Path)
		assert.Equal(t, target, r.URL.Query().Get("url"))
		fmt.Fprint(w, "proxied body")
	}))
	defer server.Close()

	client := transport.NewClient(logger.Nop(), "", server.URL+"/proxy?url=")

	content, effective, err := client.FetchText(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "proxied body", content)
	assert.Equal(t, target, effective, "proxied fetches keep the logical target as effective URL")
}

func TestFetchBinary_RetryThenSuccess(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)
		if count < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "segment data")
	}))
	defer server.Close()

	client := transport.NewClient(logger.Nop(), "", "")

	data, err := client.FetchBinary(context.Background(), server.URL+"/seg0.ts")
	require.NoError(t, err)
	assert.Equal(t, "segment data", string(data))
	assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount), "expected exactly 3 attempts")
}

func TestFetchBinary_FailureAfterRetries(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := transport.NewClient(logger.Nop(), "", "")

	_, err := client.FetchBinary(context.Background(), server.URL+"/seg0.ts")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount))

	fe, ok := transport.IsFetchError(err)
	require.True(t, ok, "final error should carry the underlying FetchError")
	assert.Equal(t, http.StatusBadGateway, fe.Status)
}

func TestFetchBinary_PerAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, "too late")
	}))
	defer server.Close()

	client := transport.NewClient(logger.Nop(), "", "")
	client.RequestTimeout = 50 * time.Millisecond

	_, err := client.FetchBinary(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestFetchDirect_RelaysContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		fmt.Fprint(w, "mp4 bytes")
	}))
	defer server.Close()

	// FetchDirect must bypass the proxy prefix.
	client := transport.NewClient(logger.Nop(), "", "http://localhost:1/proxy?url=")

	data, contentType, err := client.FetchDirect(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "mp4 bytes", string(data))
	assert.Equal(t, "video/mp4", contentType)
}
