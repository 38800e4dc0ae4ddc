package database

import "time"

const dateLayout = "2006-01-02"

// RunDate returns the UTC calendar date of t as YYYY-MM-DD.
func RunDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// FormatRunDate formats a YYYY-MM-DD run date for display, e.g. "Feb 06, 2026".
func FormatRunDate(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Jan 02, 2006")
}
