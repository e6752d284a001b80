package timer

// DaysFromCivil and CivilFromDays implement Howard Hinnant's
// constant-time, overflow-safe civil calendar algorithm
// (http://howardhinnant.github.io/date_algorithms.html), anchored on
// 1970-01-01 = day 0. Used to render wall-clock microseconds as a
// calendar date without a table of month lengths or leap-year branches.

// DaysFromCivil returns the number of days since 1970-01-01 for the
// given proleptic Gregorian calendar date.
func DaysFromCivil(y int64, m, d uint32) int64 {
	if m <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era -= 399
	}
	era /= 400

	yoe := y - era*400 // [0, 399]
	var mp int64
	if int64(m) > 2 {
		mp = int64(m) - 3
	} else {
		mp = int64(m) + 9
	}
	doy := (153*mp+2)/5 + int64(d) - 1                      // [0, 365]
	doe := yoe*365 + yoe/4 - yoe/100 + doy                  // [0, 146096]
	return era*146097 + doe - 719468
}

// CivilFromDays is the inverse of DaysFromCivil: given a day count since
// 1970-01-01, returns the proleptic Gregorian year, month and day.
func CivilFromDays(z int64) (y int64, m, d uint32) {
	z += 719468
	era := z
	if z < 0 {
		era -= 146096
	}
	era /= 146097

	doe := z - era*146097                                              // [0, 146096]
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365             // [0, 399]
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100) // [0, 365]
	mp := (5*doy + 2) / 153                  // [0, 11]
	d = uint32(doy - (153*mp+2)/5 + 1)       // [1, 31]
	if mp < 10 {
		m = uint32(mp + 3)
	} else {
		m = uint32(mp - 9)
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

// CivilTime breaks a Unix-epoch microsecond value into calendar fields.
type CivilTime struct {
	Year                    int64
	Month, Day              uint32
	Hour, Minute, Second    uint32
	Microsecond             uint32
}

// SplitMicros converts Unix-epoch microseconds into calendar fields.
func SplitMicros(unixUs int64) CivilTime {
	const usPerDay = 24 * 60 * 60 * 1_000_000

	days := unixUs / usPerDay
	rem := unixUs % usPerDay
	if rem < 0 {
		rem += usPerDay
		days--
	}

	y, m, d := CivilFromDays(days)

	secOfDay := rem / 1_000_000
	us := uint32(rem % 1_000_000)

	return CivilTime{
		Year:        y,
		Month:       m,
		Day:         d,
		Hour:        uint32(secOfDay / 3600),
		Minute:      uint32((secOfDay % 3600) / 60),
		Second:      uint32(secOfDay % 60),
		Microsecond: us,
	}
}
