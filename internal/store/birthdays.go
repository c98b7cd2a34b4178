package store

import (
	"time"

	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
)

// birthdayWindowDays is the number of days after today that still count as upcoming.
const birthdayWindowDays = 7

// dateOnly strips the time of day and location from t.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// birthdayInYear moves the month and day of birthday into the given year. February 29 is
// celebrated on March 1 in years that have no leap day.
func birthdayInYear(birthday time.Time, year int) time.Time {
	if birthday.Month() == time.February && birthday.Day() == 29 && !isLeapYear(year) {
		return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
}

// nextBirthday returns the first anniversary of birthday that is on or after today. Near the end of
// the year this is the anniversary in the following year.
func nextBirthday(birthday time.Time, today time.Time) time.Time {
	today = dateOnly(today)
	next := birthdayInYear(birthday, today.Year())
	if next.Before(today) {
		next = birthdayInYear(birthday, today.Year()+1)
	}
	return next
}

// upcomingBirthdays keeps the contacts whose next birthday lies in [today, today+days].
func upcomingBirthdays(contacts []model.Contact, today time.Time, days int) []model.Contact {
	today = dateOnly(today)
	end := today.AddDate(0, 0, days)
	upcoming := []model.Contact{}
	for _, c := range contacts {
		if !nextBirthday(c.Birthday, today).After(end) {
			upcoming = append(upcoming, c)
		}
	}
	return upcoming
}
