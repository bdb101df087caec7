// Package osv queries the OSV.dev vulnerability database for known
// advisories against a dependency's concrete version. The dependency
// analyzer holds a client by reference; a Null client disables the
// probe entirely for offline runs.
package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultURL is the public OSV query endpoint.
const DefaultURL = "https://api.osv.dev/v1/query"

// Vulnerability is one advisory returned by a lookup.
type Vulnerability struct {
	ID        string
	Summary   string
	CVSSScore *float64 // CVSS v3 base score when the feed provides one
}

// Oracle answers "known vulnerabilities for this package version?".
// Implementations report failures as errors; callers treat an error
// as an empty answer.
type Oracle interface {
	Lookup(ctx context.Context, ecosystem, name, version string) ([]Vulnerability, error)
}

// Null is the offline oracle: every lookup is empty.
type Null struct{}

func (Null) Lookup(context.Context, string, string, string) ([]Vulnerability, error) {
	return nil, nil
}

// Client queries the OSV HTTP API, one request per dependency.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a client against the public OSV endpoint with a
// short per-request timeout.
func NewClient() *Client {
	return &Client{
		URL:  DefaultURL,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

type queryRequest struct {
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
	Version string `json:"version"`
}

type querySeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type queryVuln struct {
	ID               string          `json:"id"`
	Summary          string          `json:"summary"`
	Severity         []querySeverity `json:"severity"`
	DatabaseSpecific struct {
		CVSSScore any `json:"cvss_score"`
	} `json:"database_specific"`
}

type queryResponse struct {
	Vulns []queryVuln `json:"vulns"`
}

// Lookup posts one query to the OSV API. Network failures, timeouts,
// and non-success statuses all surface as errors; callers treat those
// as "no vulnerabilities".
func (c *Client) Lookup(ctx context.Context, ecosystem, name, version string) ([]Vulnerability, error) {
	var reqBody queryRequest
	reqBody.Package.Name = name
	reqBody.Package.Ecosystem = ecosystem
	reqBody.Version = version

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying osv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osv query: status %d", resp.StatusCode)
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding osv response: %w", err)
	}

	vulns := make([]Vulnerability, 0, len(body.Vulns))
	for _, v := range body.Vulns {
		vuln := Vulnerability{ID: v.ID, Summary: v.Summary}
		if score, ok := cvssScore(v.Severity, v.DatabaseSpecific.CVSSScore); ok {
			vuln.CVSSScore = &score
		}
		vulns = append(vulns, vuln)
	}
	return vulns, nil
}

// cvssScore extracts a numeric CVSS v3 base score from whichever field
// the feed populated.
func cvssScore(severity []querySeverity, dbScore any) (float64, bool) {
	for _, s := range severity {
		if s.Type != "CVSS_V3" {
			continue
		}
		if f, err := strconv.ParseFloat(s.Score, 64); err == nil {
			return f, true
		}
	}
	switch v := dbScore.(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
