package common

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// IDPrefix prefixes every id this addon hands to Stremio.
const IDPrefix = "cartoony:"

// CatalogID is the single catalog exposed for both content types.
const CatalogID = "cartoony-latest"

// ValidateContentType checks if the content type is valid.
// It expects 'movie' and 'series' as valid types.
func ValidateContentType(t string) error {
	if t != "movie" && t != "series" {
		return errors.New("invalid content type, only movie and series are supported")
	}

	return nil
}

// ValidateCatalogID checks the catalog id is the one declared in the manifest.
func ValidateCatalogID(id string) error {
	if id != CatalogID {
		return errors.New("invalid catalog id")
	}

	return nil
}

// EncodeID turns a site URL into a Stremio id.
func EncodeID(pageURL string) string {
	return IDPrefix + base64.RawURLEncoding.EncodeToString([]byte(pageURL))
}

// DecodeID validates a Stremio id and returns the site URL it encodes.
// Only absolute http(s) URLs are accepted.
func DecodeID(id string) (string, error) {
	encoded, ok := strings.CutPrefix(id, IDPrefix)
	if !ok || encoded == "" {
		return "", errors.New("invalid id, missing cartoony prefix")
	}

	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("invalid id, not base64url")
	}

	pageURL := string(b)
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("invalid id, not an absolute http url")
	}

	return pageURL, nil
}

// ValidateSkip checks the catalog skip extra is a non negative number.
// An empty value means zero.
func ValidateSkip(skip string) (int, error) {
	if skip == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(skip)
	if err != nil {
		return 0, errors.New("invalid skip, not a number")
	}

	if v < 0 {
		return 0, errors.New("invalid skip, less than 0")
	}

	return v, nil
}
