package manifest_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hlspiped/internal/logger"
	"hlspiped/internal/manifest"
	"hlspiped/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegments_LineOrderAndResolution(t *testing.T) {
	content := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-TARGETDURATION:2",
		"",
		"#EXTINF:2.0,",
		"seg0.ts",
		"  #EXTINF:2.0,",
		"  seg1.ts  ",
		"#EXTINF:2.0,",
		"http://cdn.example.com/other/seg2.ts?token=abc",
	}, "\n")

	refs, err := manifest.ParseSegments(content, "http://example.com/streams/playlist.m3u8")
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, "http://example.com/streams/seg0.ts", refs[0].Location)
	assert.Equal(t, "seg0.ts", refs[0].Key)
	assert.Equal(t, "http://example.com/streams/seg1.ts", refs[1].Location)
	assert.Equal(t, "seg1.ts", refs[1].Key)
	assert.Equal(t, "http://cdn.example.com/other/seg2.ts?token=abc", refs[2].Location)
	assert.Equal(t, "seg2.ts", refs[2].Key, "query string must not leak into the key")
}

func TestParseSegments_EmptyAndCommentOnly(t *testing.T) {
	refs, err := manifest.ParseSegments("#EXTM3U\n\n#EXT-X-ENDLIST\n", "http://example.com/p.m3u8")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestSegmentKey(t *testing.T) {
	assert.Equal(t, "seg5.ts", manifest.SegmentKey("http://h/a/b/seg5.ts?sig=xyz&x=1"))
	assert.Equal(t, "seg5.ts", manifest.SegmentKey("http://h/seg5.ts"))
	assert.Equal(t, "plain.ts", manifest.SegmentKey("plain.ts"))
}

func newResolver(prefix string) *manifest.Resolver {
	client := transport.NewClient(logger.Nop(), "test-agent", prefix)
	return manifest.NewResolver(client, logger.Nop())
}

func TestResolve_LeafPlaylistVerbatim(t *testing.T) {
	leaf := "#EXTM3U\n#EXTINF:2.0,\nseg0.ts\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, leaf)
	}))
	defer server.Close()

	content, effective, err := newResolver("").Resolve(context.Background(), server.URL+"/playlist.m3u8")
	require.NoError(t, err)
	assert.Equal(t, leaf, content)
	assert.Equal(t, server.URL+"/playlist.m3u8", effective)
}

func TestResolve_FollowsFirstVariant(t *testing.T) {
	leaf := "#EXTM3U\nchunk0.ts\n"
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=2000000\n"+
			"variants/low.m3u8\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=5000000\n"+
			"variants/high.m3u8\n")
	})
	mux.HandleFunc("/variants/low.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, leaf)
	})
	mux.HandleFunc("/variants/high.m3u8", func(w http.ResponseWriter, r *http.Request) {
		t.Error("second variant should never be fetched")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	content, effective, err := newResolver("").Resolve(context.Background(), server.URL+"/master.m3u8")
	require.NoError(t, err)
	assert.Equal(t, leaf, content)
	assert.Equal(t, server.URL+"/variants/low.m3u8", effective,
		"relative segment refs must resolve against the variant, not the master")
}

func TestResolve_SelfReferentialMasterIsManifestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmaster.m3u8\n")
	}))
	defer server.Close()

	_, _, err := newResolver("").Resolve(context.Background(), server.URL+"/master.m3u8")
	require.Error(t, err)
	assert.True(t, manifest.IsManifestError(err), "expected ManifestError, got %v", err)
	assert.Contains(t, err.Error(), "variant chain exceeds depth")
}

func TestResolve_NonSuccessStatusIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := newResolver("").Resolve(context.Background(), server.URL+"/playlist.m3u8")
	require.Error(t, err)
	fe, ok := transport.IsFetchError(err)
	require.True(t, ok, "expected FetchError, got %v", err)
	assert.Equal(t, http.StatusNotFound, fe.Status)
}
