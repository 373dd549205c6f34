package util

import "time"

// BusinessTZ: semua timestamp absensi pakai UTC+7, bukan zona server/klien.
var BusinessTZ = time.FixedZone("UTC+7", 7*60*60)

// BusinessTime expresses t in the business zone. The instant is unchanged.
func BusinessTime(t time.Time) time.Time {
	return t.In(BusinessTZ)
}

// BusinessDay returns the first and last instant of t's calendar day in UTC+7.
func BusinessDay(t time.Time) (start, end time.Time) {
	local := t.In(BusinessTZ)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, BusinessTZ)
	end = start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// BusinessDate: tanggal "yyyy-mm-dd" di zona bisnis.
func BusinessDate(t time.Time) string {
	return t.In(BusinessTZ).Format("2006-01-02")
}

// NowHHMM formats t as "HH:MM" in the business zone, for office-hours checks.
func NowHHMM(t time.Time) string {
	return t.In(BusinessTZ).Format("15:04")
}
