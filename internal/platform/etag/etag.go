package etag

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/physio/physio/internal/platform/httperr"
)

// The version token is a weak ETag derived from the record's last-modified
// timestamp at microsecond precision (the precision Postgres stores for
// timestamptz). Clients treat it as opaque and echo it back in If-Match.

// Format renders the weak ETag for a last-modified timestamp.
func Format(updatedAt time.Time) string {
	return fmt.Sprintf(`W/"%d"`, updatedAt.UTC().UnixMicro())
}

// Parse extracts the timestamp from an ETag value like W/"1724493600123456".
func Parse(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "W/")
	token = strings.Trim(token, `"`)

	micros, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("version token must be numeric: %q", token)
	}
	return time.UnixMicro(micros).UTC(), nil
}

// match reports whether a presented token identifies the given timestamp.
func match(token string, updatedAt time.Time) bool {
	t, err := Parse(token)
	if err != nil {
		return false
	}
	return t.Equal(updatedAt.UTC().Truncate(time.Microsecond))
}

// FromRequest reads and parses the If-Match header of an update request.
// A missing header is a protocol error: updates are never unconditional.
func FromRequest(c echo.Context) (time.Time, error) {
	ifMatch := c.Request().Header.Get("If-Match")
	if ifMatch == "" {
		return time.Time{}, httperr.MissingVersionToken()
	}
	t, err := Parse(ifMatch)
	if err != nil {
		return time.Time{}, httperr.InvalidInput("invalid If-Match header: " + err.Error())
	}
	return t, nil
}

// SetHeader writes the current version token on the response.
func SetHeader(c echo.Context, updatedAt time.Time) {
	c.Response().Header().Set("ETag", Format(updatedAt))
	c.Response().Header().Set("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
}
