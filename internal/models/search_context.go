package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/votsa/ssr/internal/validator"
)

const DefaultRooms = "2"

// SearchContext is the canonical, fully specified form of one user search.
// Load-more requests derive a copy with WithOffset and keep the SearchID.
type SearchContext struct {
	PlaceID     string `json:"placeId,omitempty" validate:"required_without=HotelID,excluded_with=HotelID"`
	HotelID     string `json:"hotelId,omitempty" validate:"required_without=PlaceID"`
	CheckIn     string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut    string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Rooms       string `json:"rooms" validate:"required"`
	StarRatings []int  `json:"starRatings,omitempty" validate:"omitempty,dive,min=1,max=5"`
	Offset      int    `json:"offset" validate:"min=0"`
	SearchID    string `json:"searchId" validate:"required"`
	Facilities  []int  `json:"facilities,omitempty" validate:"omitempty,dive,min=0"`
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid search parameters: " + strings.Join(e.Fields, ", ")
}

func (c SearchContext) Validate(v *validator.Validator) error {
	if err := v.Struct(c); err != nil {
		return &ValidationError{Fields: validator.FieldErrors(err)}
	}
	in, _ := validator.ValidateDate(c.CheckIn)
	out, _ := validator.ValidateDate(c.CheckOut)
	if !out.After(in) {
		return &ValidationError{Fields: []string{"CheckOut: must be after CheckIn"}}
	}
	return nil
}

// AnchorMode reports whether the search targets a single hotel.
func (c SearchContext) AnchorMode() bool {
	return c.HotelID != ""
}

func (c SearchContext) WithOffset(offset int) SearchContext {
	next := c
	next.Offset = offset
	next.StarRatings = append([]int(nil), c.StarRatings...)
	next.Facilities = append([]int(nil), c.Facilities...)
	return next
}

// Nights returns the length of stay, or 0 when the dates do not parse.
func (c SearchContext) Nights() int {
	in, err := validator.ValidateDate(c.CheckIn)
	if err != nil {
		return 0
	}
	out, err := validator.ValidateDate(c.CheckOut)
	if err != nil {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// Key identifies a page request; identical keys produce identical pages.
func (c SearchContext) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%d",
		c.SearchID, c.PlaceID, c.HotelID, c.CheckIn, c.CheckOut, c.Rooms,
		joinInts(c.StarRatings), joinInts(c.Facilities), c.Offset)
}

// Values serializes the context for upstream search and anchor calls.
// Absent optional fields are left out entirely.
func (c SearchContext) Values() url.Values {
	v := url.Values{}
	SetString(v, "placeId", c.PlaceID)
	SetString(v, "hotelId", c.HotelID)
	SetString(v, "checkIn", c.CheckIn)
	SetString(v, "checkOut", c.CheckOut)
	SetString(v, "rooms", c.Rooms)
	SetString(v, "searchId", c.SearchID)
	SetInts(v, "starRating", c.StarRatings)
	SetInts(v, "facilities", c.Facilities)
	v.Set("offset", strconv.Itoa(c.Offset))
	return v
}

func SetString(v url.Values, key, value string) {
	if value == "" {
		return
	}
	v.Set(key, value)
}

func SetInts(v url.Values, key string, values []int) {
	if len(values) == 0 {
		return
	}
	v.Set(key, joinInts(values))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, n := range values {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
