package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const footballAPIName = "football_api"

// FootballAPIProvider fetches data from the hosted football statistics API
type FootballAPIProvider struct {
	baseURL string
	apiKey  string
	client  *RateLimitedHTTPClient
	logger  *logrus.Logger
}

// NewFootballAPIProvider creates a new provider backed by the hosted API
func NewFootballAPIProvider(baseURL, apiKey string, clientCfg HTTPClientConfig, logger *logrus.Logger) *FootballAPIProvider {
	return &FootballAPIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  NewRateLimitedHTTPClient(clientCfg, logger),
		logger:  logger,
	}
}

// Name returns the name of the provider
func (p *FootballAPIProvider) Name() string {
	return footballAPIName
}

// FetchFixture retrieves one fixture by the provider's identifier
func (p *FootballAPIProvider) FetchFixture(ctx context.Context, fixtureID string) (*FixtureData, error) {
	var fixture FixtureData
	endpoint := fmt.Sprintf("/v1/fixtures/%s", url.PathEscape(fixtureID))
	if err := p.getJSON(ctx, endpoint, &fixture); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// FetchTeamStats retrieves season aggregates for a team
func (p *FootballAPIProvider) FetchTeamStats(ctx context.Context, teamID, league, season string) (*TeamStatsData, error) {
	var stats TeamStatsData
	endpoint := fmt.Sprintf("/v1/teams/%s/stats?league=%s&season=%s",
		url.PathEscape(teamID), url.QueryEscape(league), url.QueryEscape(season))
	if err := p.getJSON(ctx, endpoint, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// FetchHeadToHead retrieves recent meetings between two teams
func (p *FootballAPIProvider) FetchHeadToHead(ctx context.Context, homeTeamID, awayTeamID string, limit int) ([]MeetingData, error) {
	var meetings []MeetingData
	endpoint := fmt.Sprintf("/v1/head-to-head?home=%s&away=%s&limit=%d",
		url.QueryEscape(homeTeamID), url.QueryEscape(awayTeamID), limit)
	if err := p.getJSON(ctx, endpoint, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// FetchInjuries retrieves the current injury list for a team
func (p *FootballAPIProvider) FetchInjuries(ctx context.Context, teamID string) ([]InjuryData, error) {
	var injuries []InjuryData
	endpoint := fmt.Sprintf("/v1/teams/%s/injuries", url.PathEscape(teamID))
	if err := p.getJSON(ctx, endpoint, &injuries); err != nil {
		return nil, err
	}
	return injuries, nil
}

// FetchResults retrieves completed fixtures for a league in a window
func (p *FootballAPIProvider) FetchResults(ctx context.Context, league string, start, end time.Time) ([]FixtureData, error) {
	var results []FixtureData
	endpoint := fmt.Sprintf("/v1/results?league=%s&from=%s&to=%s",
		url.QueryEscape(league),
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339))
	if err := p.getJSON(ctx, endpoint, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// getJSON executes a GET request and decodes the body into out
func (p *FootballAPIProvider) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, nil)
	if err != nil {
		return NewProviderError(footballAPIName, ErrCodeInvalidData, "failed to build request", err)
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return NewProviderError(footballAPIName, ErrCodeTimeout, "request cancelled or timed out", ctx.Err())
		}
		return NewProviderError(footballAPIName, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewProviderError(footballAPIName, ErrCodeNotFound, endpoint, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewProviderError(footballAPIName, ErrCodeRateLimitExceeded, endpoint, ErrRateLimitExceeded)
	case resp.StatusCode >= 500:
		return NewProviderError(footballAPIName, ErrCodeServerError,
			fmt.Sprintf("status %d for %s", resp.StatusCode, endpoint), ErrServerError)
	case resp.StatusCode != http.StatusOK:
		return NewProviderError(footballAPIName, ErrCodeInvalidData,
			fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, endpoint), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewProviderError(footballAPIName, ErrCodeInvalidData, "failed to decode response", err)
	}

	return nil
}

// Close releases the underlying HTTP client resources
func (p *FootballAPIProvider) Close() error {
	return p.client.Close()
}
