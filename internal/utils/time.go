package utils

import "time"

// VenueLocation resolves the venue's IANA timezone, falling back to UTC when
// the zone database does not know the name.
func VenueLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NowIn returns the current time in the venue's timezone. All createdAt /
// updatedAt stamps and expiry comparisons use this clock.
func NowIn(loc *time.Location) time.Time {
	return time.Now().In(loc)
}
