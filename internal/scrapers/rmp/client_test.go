package rmp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courseplanner-backend/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const schoolsResponse = `{
  "data": {
    "newSearch": {
      "schools": {
        "edges": [
          {"cursor": "a", "node": {"id": "U2Nob29sLTEwNzk=", "legacyId": 1079, "name": "University of California San Diego", "city": "La Jolla", "state": "CA"}}
        ]
      }
    }
  }
}`

const teachersResponse = `{
  "data": {
    "search": {
      "teachers": {
        "edges": [
          {"cursor": "a", "node": {"id": "1", "legacyId": 11, "firstName": "Jonathan", "lastName": "Smithers", "department": "Biology", "avgRating": 2.1, "avgDifficulty": 4.0, "numRatings": 3, "wouldTakeAgainPercent": 20.5}},
          {"cursor": "b", "node": {"id": "2", "legacyId": 22, "firstName": "John", "lastName": "Smith", "department": "Computer Science", "avgRating": 4.5, "avgDifficulty": 2.3, "numRatings": 120, "wouldTakeAgainPercent": 87.9}}
        ],
        "resultCount": 2
      }
    }
  }
}`

type recordedRequest struct {
	Name      string
	Auth      string
	Variables map[string]any
}

func newTestServer(t *testing.T, handler func(req graphqlRequest) (int, string)) (*httptest.Server, *[]recordedRequest) {
	requests := &[]recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vars, _ := req.Variable.(map[string]any)
		*requests = append(*requests, recordedRequest{
			Name:      req.Name,
			Auth:      r.Header.Get("Authorization"),
			Variables: vars,
		})

		status, body := handler(req)
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func newTestClient(srv *httptest.Server, tel telemetry.API) *Client {
	return NewClient(Options{
		Endpoint:          srv.URL,
		RequestsPerSecond: 100,
		Timeout:           time.Second * 5,
	}, tel)
}

func TestSearchSchool(t *testing.T) {
	srv, requests := newTestServer(t, func(req graphqlRequest) (int, string) {
		return http.StatusOK, schoolsResponse
	})
	client := newTestClient(srv, telemetry.NewRecorder())

	schools, err := client.SearchSchool(context.Background(), "University of California San Diego")
	require.NoError(t, err)
	if diff := cmp.Diff([]SchoolRef{{
		ID:       "U2Nob29sLTEwNzk=",
		LegacyID: 1079,
		Name:     "University of California San Diego",
		City:     "La Jolla",
		State:    "CA",
	}}, schools); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, *requests, 1)
	require.Equal(t, "NewSearchSchoolsQuery", (*requests)[0].Name)
	require.Equal(t, basicAuthHeader, (*requests)[0].Auth)
}

func TestSearchSchoolNoResults(t *testing.T) {
	srv, _ := newTestServer(t, func(req graphqlRequest) (int, string) {
		return http.StatusOK, `{"data": {"newSearch": {"schools": {"edges": []}}}}`
	})
	client := newTestClient(srv, telemetry.NewRecorder())

	_, err := client.SearchSchool(context.Background(), "nowhere")
	require.ErrorIs(t, err, ErrNoResults)
}

func TestRatingForInstructorPicksClosestName(t *testing.T) {
	srv, requests := newTestServer(t, func(req graphqlRequest) (int, string) {
		return http.StatusOK, teachersResponse
	})
	client := newTestClient(srv, telemetry.NewRecorder())

	rating, err := client.RatingForInstructor(context.Background(), "John Smith", "U2Nob29sLTEwNzk=")
	require.NoError(t, err)
	require.Equal(t, Rating{
		FirstName:             "John",
		LastName:              "Smith",
		Department:            "Computer Science",
		AvgRating:             4.5,
		AvgDifficulty:         2.3,
		NumRatings:            120,
		WouldTakeAgainPercent: 87,
		LegacyID:              22,
	}, rating)
	require.Equal(t, "John Smith", rating.FormattedName())

	require.Len(t, *requests, 1)
	vars := (*requests)[0].Variables
	require.Equal(t, "U2Nob29sLTEwNzk=", vars["schoolID"])
	query := vars["query"].(map[string]any)
	require.Equal(t, "John Smith", query["text"])
}

func TestRatingForInstructorMatchesReversedName(t *testing.T) {
	srv, _ := newTestServer(t, func(req graphqlRequest) (int, string) {
		return http.StatusOK, teachersResponse
	})
	client := newTestClient(srv, telemetry.NewRecorder())

	rating, err := client.RatingForInstructor(context.Background(), "smith john", "x")
	require.NoError(t, err)
	require.Equal(t, 22, rating.LegacyID)
}

func TestRatingForInstructorNegativeTakeAgain(t *testing.T) {
	srv, _ := newTestServer(t, func(req graphqlRequest) (int, string) {
		return http.StatusOK, `{"data": {"search": {"teachers": {"edges": [
			{"node": {"firstName": "Ana", "lastName": "Garcia", "avgRating": 0, "wouldTakeAgainPercent": -1}}
		]}}}}`
	})
	client := newTestClient(srv, telemetry.NewRecorder())

	rating, err := client.RatingForInstructor(context.Background(), "Ana Garcia", "x")
	require.NoError(t, err)
	require.Equal(t, 0, rating.WouldTakeAgainPercent)
}

func TestRatingForInstructorFailures(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		noResults bool
	}{
		{name: "empty", status: http.StatusOK, body: `{"data": {"search": {"teachers": {"edges": []}}}}`, noResults: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "malformed", status: http.StatusOK, body: `{"data": [`},
		{name: "graphql error", status: http.StatusOK, body: `{"errors": [{"message": "bad query"}]}`},
		{name: "no data", status: http.StatusOK, body: `{}`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(req graphqlRequest) (int, string) {
				return test.status, test.body
			})
			rec := telemetry.NewRecorder()
			client := newTestClient(srv, rec)

			_, err := client.RatingForInstructor(context.Background(), "John Smith", "x")
			require.Error(t, err)
			if test.noResults {
				require.ErrorIs(t, err, ErrNoResults)
				return
			}
			require.NotErrorIs(t, err, ErrNoResults)
			require.True(t, rec.Has(telemetry.KindBroken, report_client_rating))
		})
	}
}
