package models

import "time"

const DateLayout = "2006-01-02"

// Date is a UTC calendar day in YYYY-MM-DD form. The empty Date means unset.
type Date string

// DateOf returns the UTC calendar day containing t.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// Today returns the current UTC calendar day.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) IsZero() bool {
	return d == ""
}

func (d Date) String() string {
	return string(d)
}

// AddDays returns the date shifted by n days. An unparsable date is returned unchanged.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}
