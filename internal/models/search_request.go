package models

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// UserParams holds raw, unvalidated search parameters as they arrive on a request.
type UserParams struct {
	PlaceID     string
	HotelID     string
	CheckIn     string
	CheckOut    string
	Rooms       string
	Offset      string
	StarRatings []string
	Facilities  []string
	SearchID    string
}

func UserParamsFromQuery(q url.Values) UserParams {
	stars := append([]string(nil), q["starRating"]...)
	stars = append(stars, q["starRatings"]...)
	return UserParams{
		PlaceID:     strings.TrimSpace(q.Get("placeId")),
		HotelID:     strings.TrimSpace(q.Get("hotelId")),
		CheckIn:     strings.TrimSpace(q.Get("checkIn")),
		CheckOut:    strings.TrimSpace(q.Get("checkOut")),
		Rooms:       strings.TrimSpace(q.Get("rooms")),
		Offset:      strings.TrimSpace(q.Get("offset")),
		StarRatings: stars,
		Facilities:  q["facilities"],
		SearchID:    strings.TrimSpace(q.Get("searchId")),
	}
}

// Normalize turns raw parameters into a SearchContext. It never fails:
// malformed numbers are coerced to 0 or dropped.
func Normalize(p UserParams, searchID string) SearchContext {
	rooms := p.Rooms
	if rooms == "" {
		rooms = DefaultRooms
	}
	return SearchContext{
		PlaceID:     p.PlaceID,
		HotelID:     p.HotelID,
		CheckIn:     p.CheckIn,
		CheckOut:    p.CheckOut,
		Rooms:       rooms,
		StarRatings: parseIntSet(p.StarRatings, 1, 5),
		Offset:      parseOffset(p.Offset),
		SearchID:    searchID,
		Facilities:  parseIntSet(p.Facilities, 0, math.MaxInt32),
	}
}

func parseOffset(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseIntSet accepts single values, comma lists or both, and returns a sorted
// set of the entries inside [min, max].
func parseIntSet(raw []string, min, max int) []int {
	seen := map[int]struct{}{}
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < min || n > max {
				continue
			}
			seen[n] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
