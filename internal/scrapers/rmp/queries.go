package rmp

const searchSchoolsQuery = `query NewSearchSchoolsQuery($query: SchoolSearchQuery!) {
  newSearch {
    schools(query: $query) {
      edges {
        cursor
        node {
          id
          legacyId
          name
          city
          state
        }
      }
    }
  }
}`

type searchSchoolsVariables struct {
	Query struct {
		Text string `json:"text"`
	} `json:"query"`
}

type searchSchoolsResponse struct {
	NewSearch struct {
		Schools struct {
			Edges []struct {
				Cursor string    `json:"cursor"`
				Node   SchoolRef `json:"node"`
			} `json:"edges"`
		} `json:"schools"`
	} `json:"newSearch"`
}

const teacherSearchQuery = `query TeacherSearchResultsPageQuery($query: TeacherSearchQuery!, $schoolID: ID) {
  search: newSearch {
    teachers(query: $query, first: 8, after: "") {
      edges {
        cursor
        node {
          id
          legacyId
          firstName
          lastName
          department
          avgRating
          avgDifficulty
          numRatings
          wouldTakeAgainPercent
          school {
            id
            name
          }
        }
      }
      resultCount
    }
  }
  school: node(id: $schoolID) {
    __typename
    ... on School {
      name
    }
    id
  }
}`

type teacherSearchQueryInput struct {
	Text         string  `json:"text"`
	SchoolID     string  `json:"schoolID"`
	Fallback     bool    `json:"fallback"`
	DepartmentID *string `json:"departmentID"`
}

type teacherSearchVariables struct {
	Query    teacherSearchQueryInput `json:"query"`
	SchoolID string                  `json:"schoolID"`
}

type teacherNode struct {
	ID                    string  `json:"id"`
	LegacyID              int     `json:"legacyId"`
	FirstName             string  `json:"firstName"`
	LastName              string  `json:"lastName"`
	Department            string  `json:"department"`
	AvgRating             float64 `json:"avgRating"`
	AvgDifficulty         float64 `json:"avgDifficulty"`
	NumRatings            int     `json:"numRatings"`
	WouldTakeAgainPercent float64 `json:"wouldTakeAgainPercent"`
	School                struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"school"`
}

type teacherSearchResponse struct {
	Search struct {
		Teachers struct {
			Edges []struct {
				Cursor string      `json:"cursor"`
				Node   teacherNode `json:"node"`
			} `json:"edges"`
			ResultCount int `json:"resultCount"`
		} `json:"teachers"`
	} `json:"search"`
}
