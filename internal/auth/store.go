package auth

import "time"

// storeTimeLayout is a fixed-width RFC 3339 layout so stored timestamps
// sort lexically in creation order.
const storeTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

// nowUTC is the store clock.
var nowUTC = func() time.Time { return time.Now().UTC() }

func formatTime(t time.Time) string {
	return t.UTC().Format(storeTimeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // format is controlled
	return t
}
