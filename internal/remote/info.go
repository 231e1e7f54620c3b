package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DownloadURLKey holds the archive URL in the update-check response.
	DownloadURLKey = "buttonURL"
	// LatestVersionKey holds the new version identifier; empty means up to date.
	LatestVersionKey = "ID"
)

// UpdateInfo is the flat string mapping returned by the update-check endpoint.
type UpdateInfo map[string]string

// DownloadURL returns the archive URL and whether the key was present.
func (i UpdateInfo) DownloadURL() (string, bool) {
	value, ok := i[DownloadURLKey]

	return value, ok
}

// LatestVersion returns the advertised version and whether the key was present.
// A present but empty value means the installed SDK is current.
func (i UpdateInfo) LatestVersion() (string, bool) {
	value, ok := i[LatestVersionKey]

	return value, ok
}

// CheckURL builds the update-check URL for currentVersion (empty when unknown).
func (c *Client) CheckURL(currentVersion string) (string, error) {
	checkURL, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse update URL: %w", err)
	}

	query := checkURL.Query()
	query.Set("app", c.appName)
	query.Set("platform", c.platform)
	query.Set("appver", currentVersion)

	// The endpoint expects %20 for spaces; literal pluses are already %2B.
	checkURL.RawQuery = strings.ReplaceAll(query.Encode(), "+", "%20")

	return checkURL.String(), nil
}

// FetchUpdateInfo queries the update-check endpoint once.
// The recognized keys must hold strings; other non-string values are ignored.
func (c *Client) FetchUpdateInfo(ctx context.Context, currentVersion string) (UpdateInfo, error) {
	checkURL, err := c.CheckURL(currentVersion)
	if err != nil {
		return nil, err
	}

	response, err := c.get(ctx, checkURL)
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var raw map[string]any
	if err = json.NewDecoder(response.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInfo, err)
	}

	if raw == nil {
		return nil, fmt.Errorf("%w: response is not an object", ErrMalformedInfo)
	}

	info := make(UpdateInfo, len(raw))

	for key, value := range raw {
		text, ok := value.(string)
		if ok {
			info[key] = text

			continue
		}

		if key == DownloadURLKey || key == LatestVersionKey {
			return nil, fmt.Errorf("%w: %q is %T, want a string", ErrMalformedInfo, key, value)
		}
	}

	return info, nil
}
