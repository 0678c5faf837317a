package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		panic(err)
	}
}

// force the timezone to Buenos Aires because the hosting region is not
// under our control and every listed site publishes local showtimes,
// so date math on <time.Time>.Year()/Month()/Day() must happen in ART
func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay truncates t to midnight in the pinned timezone.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}
