package net

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	dirMode  = 0700
	fileMode = 0600
)

var ErrorURLNotFound = errors.New("URL not found")

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Download fetches url into the file at dst. The file is written to a
// temporary sibling first so a failed download never leaves partial content.
func Download(ctx context.Context, url, dst string) (retErr error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	resp, err := GetHTTPClient().Do(req) //nolint:gosec // URL comes from local config
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrorURLNotFound
	}
	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	out, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmp := out.Name()
	defer func() {
		if retErr != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Chmod(tmp, fileMode); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("error moving download into place: %w", err)
	}

	return nil
}

// Resolve returns a local path for location. Local paths are returned as
// is. URLs are downloaded once into cacheDir, keyed by the URL hash, and
// the cached copy is reused afterwards.
func Resolve(ctx context.Context, location, cacheDir string) (string, error) {
	if !IsRemote(location) {
		return location, nil
	}
	if cacheDir == "" {
		return "", errors.New("cache directory required for remote artifacts")
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("error parsing URL %s: %w", location, err)
	}

	sum := sha256.Sum256([]byte(location))
	name := hex.EncodeToString(sum[:8]) + "-" + path.Base(u.Path)
	dst := filepath.Join(cacheDir, name)

	if _, err := os.Stat(dst); err == nil {
		slog.Debug("using cached artifact", "url", location, "path", dst)
		return dst, nil
	}

	if err := os.MkdirAll(cacheDir, dirMode); err != nil {
		return "", fmt.Errorf("error creating cache dir %s: %w", cacheDir, err)
	}

	slog.Info("downloading artifact", "url", location)
	if err := Download(ctx, location, dst); err != nil {
		return "", err
	}
	return dst, nil
}
