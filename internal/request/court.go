package request

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/models"
)

const courtIDPathKey = "court_id"

// ParseCourtID parses a positive int64 court ID.
func ParseCourtID(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	courtID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || courtID <= 0 {
		return 0, false
	}

	return courtID, true
}

// CourtIDFromPath reads {court_id} from the route, falling back to the
// court_id query parameter.
func CourtIDFromPath(r *http.Request) (int64, bool) {
	if courtID, ok := ParseCourtID(r.PathValue(courtIDPathKey)); ok {
		return courtID, true
	}
	return ParseCourtID(r.URL.Query().Get(courtIDPathKey))
}

// DateFromQuery returns the date query parameter, or today in loc when it is
// absent. ok is false for a malformed date.
func DateFromQuery(r *http.Request, now time.Time, loc *time.Location) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		if loc == nil {
			loc = time.Local
		}
		return now.In(loc).Format(models.DateLayout), true
	}
	if _, err := time.Parse(models.DateLayout, raw); err != nil {
		log.Ctx(r.Context()).
			Debug().
			Err(err).
			Str("date", raw).
			Msg("Failed to parse date query")
		return "", false
	}
	return raw, true
}
