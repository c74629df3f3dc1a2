package manifest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"hlspiped/internal/logger"
	"hlspiped/internal/models"
	"hlspiped/internal/transport"
)

// variantMarker flags a master playlist entry describing a variant stream.
const variantMarker = "#EXT-X-STREAM-INF"

// maxVariantDepth bounds master-playlist recursion. A chain deeper than
// this (including self-referential playlists) is treated as a broken
// manifest rather than followed forever.
const maxVariantDepth = 5

// ManifestError reports an unusable manifest: empty, unparseable, or a
// variant chain that never reaches a leaf playlist.
type ManifestError struct {
	URL    string
	Reason string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %s", e.URL, e.Reason)
}

// IsManifestError reports whether err is a ManifestError.
func IsManifestError(err error) bool {
	var me *ManifestError
	return errors.As(err, &me)
}

// Resolver fetches a manifest and follows variant chains down to a
// leaf playlist.
type Resolver struct {
	client *transport.Client
	logger logger.Logger
}

// NewResolver creates a manifest resolver on top of the given transport.
func NewResolver(client *transport.Client, log logger.Logger) *Resolver {
	return &Resolver{client: client, logger: log}
}

// Resolve fetches rawURL and, if it is a multi-variant manifest,
// recursively resolves the first listed variant until a leaf playlist
// is reached. It returns the leaf content and the effective URL that
// relative segment references resolve against.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, string, error) {
	return r.resolve(ctx, rawURL, 0)
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, depth int) (string, string, error) {
	if depth > maxVariantDepth {
		return "", "", &ManifestError{URL: rawURL, Reason: fmt.Sprintf("variant chain exceeds depth %d", maxVariantDepth)}
	}

	content, effectiveURL, err := r.client.FetchText(ctx, rawURL)
	if err != nil {
		return "", "", err
	}

	variant, ok := firstVariantURI(content)
	if !ok {
		return content, effectiveURL, nil
	}

	variantURL, err := resolveReference(effectiveURL, variant)
	if err != nil {
		return "", "", &ManifestError{URL: rawURL, Reason: fmt.Sprintf("bad variant URI %q: %v", variant, err)}
	}

	r.logger.Debugf("Master playlist at %s, following first variant %s", effectiveURL, variantURL)
	return r.resolve(ctx, variantURL, depth+1)
}

// firstVariantURI returns the URI of the first variant stream in a
// master playlist, or false if the content is a leaf playlist.
func firstVariantURI(content string) (string, bool) {
	expectURI := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, variantMarker) {
			expectURI = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if expectURI {
			return line, true
		}
	}
	return "", false
}

// ParseSegments splits a leaf playlist into segment references in line
// order. Blank lines and comment lines are skipped; every other line is
// a segment reference, resolved against the manifest's own URL when
// relative.
func ParseSegments(content, baseURL string) ([]models.SegmentRef, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ManifestError{URL: baseURL, Reason: fmt.Sprintf("bad base URL: %v", err)}
	}

	var refs []models.SegmentRef
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref, err := url.Parse(line)
		if err != nil {
			// One malformed line does not invalidate the playlist.
			continue
		}
		location := base.ResolveReference(ref).String()
		refs = append(refs, models.SegmentRef{
			Key:      SegmentKey(location),
			Location: location,
		})
	}
	return refs, nil
}

// SegmentKey derives the stable dedup identity of a segment location:
// the last path component with any query string stripped.
func SegmentKey(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		// Fall back to manual query stripping on an unparseable URL.
		if i := strings.IndexByte(location, '?'); i >= 0 {
			location = location[:i]
		}
		return path.Base(location)
	}
	return path.Base(u.Path)
}

func resolveReference(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}
