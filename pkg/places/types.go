package places

import (
	"strconv"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the location the way the Nearby Search API expects it ("lat,lng").
func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// SearchRequest describes one Nearby Search call.
//
// A request with a non-empty PageToken carries only the token; Location,
// Radius and Keyword are ignored because the token encodes the original
// query server-side.
type SearchRequest struct {
	Location  Location
	Radius    int // meters
	Keyword   string
	PageToken string
}

// IsContinuation reports whether the request fetches a follow-up page.
func (r SearchRequest) IsContinuation() bool {
	return r.PageToken != ""
}

// SearchResponse is one page of results.
type SearchResponse struct {
	Records []PlaceRecord

	// NextPageToken is empty on the last page.
	NextPageToken string
}

// PlaceRecord is the filtered view of a place that gets exported.
// Field order is the JSON field order of the uploaded payload.
type PlaceRecord struct {
	Name              string   `json:"name"`
	Address           string   `json:"address"`
	Rating            *float64 `json:"rating"`
	OperationalStatus string   `json:"operational_status"`
}

// Nearby Search statuses.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// nearbySearchResponse is the subset of the Nearby Search JSON body we read.
type nearbySearchResponse struct {
	NextPageToken string        `json:"next_page_token"`
	Results       []placeResult `json:"results"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

type placeResult struct {
	BusinessStatus string   `json:"business_status"`
	Name           string   `json:"name"`
	PlaceID        string   `json:"place_id"`
	Rating         *float64 `json:"rating,omitempty"`
	Vicinity       string   `json:"vicinity"`
	Types          []string `json:"types"`
}

func (p placeResult) toRecord() PlaceRecord {
	return PlaceRecord{
		Name:              p.Name,
		Address:           p.Vicinity,
		Rating:            p.Rating,
		OperationalStatus: p.BusinessStatus,
	}
}

func (r *nearbySearchResponse) toSearchResponse() *SearchResponse {
	records := make([]PlaceRecord, 0, len(r.Results))
	for _, result := range r.Results {
		records = append(records, result.toRecord())
	}
	return &SearchResponse{
		Records:       records,
		NextPageToken: r.NextPageToken,
	}
}
