package common

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IDPrefix namespaces every meta id served by this addon.
const IDPrefix = "cineby:"

var (
	metaIDRE   = regexp.MustCompile(`^cineby:\d+$`)
	streamIDRE = regexp.MustCompile(`^cineby:\d+(:\d+:\d+)?$`)
)

var catalogIDs = map[string]struct{}{
	"cineby-trending": {},
	"cineby-movies":   {},
	"cineby-series":   {},
	"cineby-search":   {},
}

// ValidateContentType checks if the content type is valid.
// It expects 'movie' and 'series' as valid types.
func ValidateContentType(t string) error {
	if t != "movie" && t != "series" {
		return errors.New("invalid content type, only movie and series are supported")
	}

	return nil
}

// ValidateCatalogID checks if the given catalog id is one this addon serves.
func ValidateCatalogID(id string) error {
	if _, ok := catalogIDs[id]; !ok {
		return fmt.Errorf("unknown catalog id: %s", id)
	}

	return nil
}

// ParseMetaID validates a namespaced meta id and returns the upstream
// numeric id with the namespace prefix stripped.
func ParseMetaID(id string) (int, error) {
	if !metaIDRE.MatchString(id) {
		return 0, errors.New("invalid meta id")
	}

	upstreamID, err := strconv.Atoi(strings.TrimPrefix(id, IDPrefix))
	if err != nil {
		return 0, errors.New("invalid meta id")
	}

	return upstreamID, nil
}

// ParseStreamID validates a namespaced stream id and returns the
// upstream numeric id plus the season/episode suffix fields, which are
// zero for movies.
func ParseStreamID(id string) (upstreamID, season, episode int, err error) {
	if !streamIDRE.MatchString(id) {
		return 0, 0, 0, errors.New("invalid stream id")
	}

	parts := strings.Split(strings.TrimPrefix(id, IDPrefix), ":")
	upstreamID, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, errors.New("invalid stream id")
	}

	if len(parts) == 3 {
		season, _ = strconv.Atoi(parts[1])
		episode, _ = strconv.Atoi(parts[2])
	}

	return upstreamID, season, episode, nil
}
