package signals

import (
	"database/sql"
	"gatekeeper/internal/models"
	"time"
)

// toMicros converts a timestamp to the unix-microsecond integer the sqlite
// schema stores. Integer columns keep ordering and range scans exact.
func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

// fromMicros converts a stored unix-microsecond value back to UTC time.
func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// nullString maps the empty string to SQL NULL so absent hashes and labels
// are stored as NULL rather than "".
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullableText returns nil for "" so pgx writes NULL.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefText returns "" for a NULL text column.
func derefText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// riskLabel converts a nullable stored label.
func riskLabel(s sql.NullString) models.RiskLabel {
	if !s.Valid {
		return models.RiskNone
	}
	return models.RiskLabel(s.String)
}
