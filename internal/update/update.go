// internal/update/update.go
// GitHub release checking for "steg version --check"
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
)

const (
	// GitHubRepo is the repository releases are published to
	GitHubRepo = "stegai/steg-cli"

	// GitHubAPIBase is the GitHub API endpoint
	GitHubAPIBase = "https://api.github.com"
)

// Release is the subset of a GitHub release the checker reads.
type Release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Prerelease bool   `json:"prerelease"`
	HTMLURL    string `json:"html_url"`
}

// Checker compares the running version with the latest release.
type Checker struct {
	CurrentVersion string
	APIBase        string
	Repo           string
	httpClient     *http.Client
}

// NewChecker creates a checker against the public GitHub API.
func NewChecker(currentVersion string) *Checker {
	return &Checker{
		CurrentVersion: currentVersion,
		APIBase:        GitHubAPIBase,
		Repo:           GitHubRepo,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Check returns the latest release and whether it is newer than the
// running version. Development builds are never reported as outdated.
func (c *Checker) Check(ctx context.Context) (*Release, bool, error) {
	release, err := c.LatestRelease(ctx)
	if err != nil {
		return nil, false, err
	}
	if isDevVersion(c.CurrentVersion) {
		return release, false, nil
	}
	newer, err := IsNewer(c.CurrentVersion, release.TagName)
	if err != nil {
		return release, false, err
	}
	return release, newer, nil
}

// LatestRelease fetches the latest published release.
func (c *Checker) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(c.APIBase, "/"), c.Repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "steg-cli")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status: %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("could not decode release: %w", err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release has no tag")
	}
	return &release, nil
}

// IsNewer reports whether latest is a higher version than current. A
// leading "v" is ignored on both.
func IsNewer(current, latest string) (bool, error) {
	cur, err := version.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid current version %s: %w", current, err)
	}
	lat, err := version.NewVersion(strings.TrimPrefix(latest, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid release version %s: %w", latest, err)
	}
	return lat.GreaterThan(cur), nil
}

func isDevVersion(v string) bool {
	v = strings.TrimPrefix(v, "v")
	return v == "" || v == "dev"
}
