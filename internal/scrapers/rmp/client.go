package rmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"courseplanner-backend/internal/components/assert"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/components/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_search_school   = "client.search-school"
	report_client_rating          = "client.rating-for-instructor"
	report_client_graphql_query   = "client.graphql-query"
	report_client_weak_name_match = "client.weak-name-match"
)

const (
	DefaultEndpoint = "https://www.ratemyprofessors.com/graphql"
	// the public web client authenticates every request with this fixed
	// basic auth pair (test:test).
	basicAuthHeader = "Basic dGVzdDp0ZXN0"
)

// ErrNoResults is returned when the service has no instructor or school
// matching the query.
var ErrNoResults = errors.New("no results")

type SchoolRef struct {
	ID       string `json:"id"`
	LegacyID int    `json:"legacyId"`
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"`
}

type Rating struct {
	FirstName             string
	LastName              string
	Department            string
	AvgRating             float64
	AvgDifficulty         float64
	NumRatings            int
	WouldTakeAgainPercent int
	LegacyID              int
}

// FormattedName is "First Last".
func (r Rating) FormattedName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", r.FirstName, r.LastName))
}

type Options struct {
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
	Timeout           time.Duration
	// Output receives a dump of every exchange when set.
	Output telemetry.RestyOutput
}

// Client talks to the rating service's GraphQL API.
type Client struct {
	http     *resty.Client
	endpoint string
	tel      telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("rmp", tel)

	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetHeader("Authorization", basicAuthHeader)
	httpClient.SetTimeout(opts.Timeout)

	// max burst >= rps just means that no requests will be dropped
	burst := int(math.Ceil(opts.RequestsPerSecond))
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentRestyWithOutput(httpClient, tel, opts.Output)

	return &Client{
		http:     httpClient,
		endpoint: opts.Endpoint,
		tel:      tel,
	}
}

type graphqlRequest struct {
	Name     string `json:"operationName"`
	Query    string `json:"query"`
	Variable any    `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse[T any] struct {
	Data   *T             `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func graphqlQuery[O any](
	ctx context.Context,
	client *Client,
	name,
	query string,
	variables any,
	output *O,
) error {
	client.tel.ReportDebug(report_client_graphql_query, name, variables)

	body, err := json.Marshal(graphqlRequest{
		Name:     name,
		Query:    query,
		Variable: variables,
	})
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	res, err := client.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(client.endpoint)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("fetch: unexpected status %s", res.Status())
	}

	parsed := graphqlResponse[O]{}
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return fmt.Errorf("graphql %s: %s", name, parsed.Errors[0].Message)
	}
	if parsed.Data == nil {
		return fmt.Errorf("graphql %s: response has no data", name)
	}

	*output = *parsed.Data
	return nil
}

// SearchSchool returns every school matching name, ErrNoResults when
// there are none.
func (c *Client) SearchSchool(ctx context.Context, name string) ([]SchoolRef, error) {
	var variables searchSchoolsVariables
	variables.Query.Text = name

	var res searchSchoolsResponse
	err := graphqlQuery(ctx, c, "NewSearchSchoolsQuery", searchSchoolsQuery, variables, &res)
	if err != nil {
		c.tel.ReportBroken(report_client_search_school, err, name)
		return nil, err
	}

	var out []SchoolRef
	for _, edge := range res.NewSearch.Schools.Edges {
		out = append(out, edge.Node)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("school %q: %w", name, ErrNoResults)
	}
	return out, nil
}

// RatingForInstructor searches the instructors of a school and returns the
// rating of the one whose name is the closest to name.
func (c *Client) RatingForInstructor(ctx context.Context, name, schoolID string) (Rating, error) {
	variables := teacherSearchVariables{
		Query: teacherSearchQueryInput{
			Text:     name,
			SchoolID: schoolID,
			Fallback: true,
		},
		SchoolID: schoolID,
	}

	var res teacherSearchResponse
	err := graphqlQuery(ctx, c, "TeacherSearchResultsPageQuery", teacherSearchQuery, variables, &res)
	if err != nil {
		c.tel.ReportBroken(report_client_rating, err, name)
		return Rating{}, err
	}

	candidates := make([]teacherNode, 0, len(res.Search.Teachers.Edges))
	for _, edge := range res.Search.Teachers.Edges {
		candidates = append(candidates, edge.Node)
	}
	best, similarity, ok := bestCandidate(name, candidates)
	if !ok {
		return Rating{}, fmt.Errorf("instructor %q: %w", name, ErrNoResults)
	}
	if similarity < weakMatchThreshold {
		c.tel.ReportWarning(
			report_client_weak_name_match,
			telemetry.KV{Key: "query", Value: name},
			telemetry.KV{Key: "match", Value: best.FirstName + " " + best.LastName},
			telemetry.KV{Key: "similarity", Value: similarity},
		)
	}

	takeAgain := int(best.WouldTakeAgainPercent)
	if takeAgain < 0 {
		takeAgain = 0
	}
	return Rating{
		FirstName:             best.FirstName,
		LastName:              best.LastName,
		Department:            best.Department,
		AvgRating:             best.AvgRating,
		AvgDifficulty:         best.AvgDifficulty,
		NumRatings:            best.NumRatings,
		WouldTakeAgainPercent: takeAgain,
		LegacyID:              best.LegacyID,
	}, nil
}

const weakMatchThreshold = 0.8

// bestCandidate picks the candidate whose "first last" (or "last first")
// name has the highest Jaro-Winkler similarity with the query.
func bestCandidate(query string, candidates []teacherNode) (teacherNode, float64, bool) {
	key := textutil.NormalizeInstructorKey(query)

	var best teacherNode
	bestSimilarity := -1.0
	for _, candidate := range candidates {
		forward := textutil.NormalizeInstructorKey(candidate.FirstName + " " + candidate.LastName)
		reversed := textutil.NormalizeInstructorKey(candidate.LastName + " " + candidate.FirstName)
		similarity := math.Max(
			matchr.JaroWinkler(key, forward, false),
			matchr.JaroWinkler(key, reversed, false),
		)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	if bestSimilarity < 0 {
		return teacherNode{}, 0, false
	}
	return best, bestSimilarity, true
}
