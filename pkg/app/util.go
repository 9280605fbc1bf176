package app

import "time"

// calculateNextDelay returns the time from now to the next quarter hour (0, 15, 30, 45).
func calculateNextDelay(now time.Time) time.Duration {
	nextQuarter := time.Date(
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		(now.Minute()/15+1)*15,
		0,
		0,
		now.Location(),
	)
	return nextQuarter.Sub(now)
}
