package saga

import "time"

// startDateLayout is the 8-digit date encoding the payment-collection
// service expects.
const startDateLayout = "20060102"

// MandateStartDate returns the first calendar day of the month following
// now, encoded YYYYMMDD. If that date is not strictly after now (month
// boundary edge), it rolls forward one more month: a mandate must never
// start on or before the day it is registered.
func MandateStartDate(now time.Time) string {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	if !start.After(now) {
		start = start.AddDate(0, 1, 0)
	}
	return start.Format(startDateLayout)
}
