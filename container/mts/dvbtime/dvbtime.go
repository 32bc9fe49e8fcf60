/*
NAME
  dvbtime.go

DESCRIPTION
  dvbtime implements the DVB time encodings used by TDT/TOT and EIT:
  Modified Julian Date + BCD time of day, BCD duration, and the Central
  European DST boundary computation used for local_time_offset_descriptor
  schedules.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dvbtime implements the MJD+BCD time codecs defined by
// ETSI EN 300 468 Annex C, and the Central European DST boundary
// formulas used by local_time_offset_descriptor schedules.
package dvbtime

import "time"

// EncodeBCDDuration BCD-encodes a duration given in seconds into the
// 24-bit hours/minutes/seconds form used by EIT event durations.
func EncodeBCDDuration(seconds int) uint32 {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return uint32(toBCD(h))<<16 | uint32(toBCD(m))<<8 | uint32(toBCD(s))
}

// DecodeBCDDuration decodes a 24-bit BCD duration into hours, minutes,
// seconds, and the total number of seconds.
func DecodeBCDDuration(bcd uint32) (h, m, s, total int) {
	h = fromBCD(byte(bcd >> 16))
	m = fromBCD(byte(bcd >> 8))
	s = fromBCD(byte(bcd))
	total = h*3600 + m*60 + s
	return
}

// EncodeMJD encodes t (interpreted as UTC) into a 16-bit Modified Julian
// Date and a 24-bit BCD time of day, per ETSI EN 300 468 Annex C.
func EncodeMJD(t time.Time) (mjd uint16, bcd uint32) {
	t = t.UTC()
	y := t.Year() - 1900
	m := int(t.Month())
	d := t.Day()

	l := 0
	if m == 1 || m == 2 {
		l = 1
	}
	mjdVal := 14956 + d + int(float64(y-l)*365.25) + int(float64(m+1+l*12)*30.6001)

	bcdVal := uint32(toBCD(t.Hour()))<<16 | uint32(toBCD(t.Minute()))<<8 | uint32(toBCD(t.Second()))
	return uint16(mjdVal), bcdVal
}

// DecodeMJD decodes a 16-bit Modified Julian Date and a 24-bit BCD time
// of day into a UTC time.Time, per ETSI EN 300 468 Annex C.
func DecodeMJD(mjd uint16, bcd uint32) time.Time {
	mjdf := float64(mjd)
	y := int((mjdf - 15078.2) / 365.25)
	mo := int((mjdf - 14956.1 - float64(int(float64(y)*365.25))) / 30.6001)
	d := int(mjdf) - 14956 - int(float64(y)*365.25) - int(float64(mo)*30.6001)

	k := 0
	if mo == 14 || mo == 15 {
		k = 1
	}
	y += k
	mo = mo - 1 - k*12

	hour, min, sec, _ := DecodeBCDDuration(bcd)
	return time.Date(y+1900, time.Month(mo), d, hour, min, sec, 0, time.UTC)
}

// EuroDSTStart returns the UTC instant (01:00 UTC on the last Sunday of
// March) at which Central European Summer Time begins in the given year.
func EuroDSTStart(year int) time.Time {
	day := 31 - (5*year/4+4)%7
	return time.Date(year, time.March, day, 1, 0, 0, 0, time.UTC)
}

// EuroDSTEnd returns the UTC instant (01:00 UTC on the last Sunday of
// October) at which Central European Summer Time ends in the given year.
func EuroDSTEnd(year int) time.Time {
	day := 31 - (5*year/4+1)%7
	return time.Date(year, time.October, day, 1, 0, 0, 0, time.UTC)
}

// InEuroDST reports whether t (UTC) falls within Central European Summer
// Time for its calendar year.
func InEuroDST(t time.Time) bool {
	t = t.UTC()
	start := EuroDSTStart(t.Year())
	end := EuroDSTEnd(t.Year())
	return !t.Before(start) && t.Before(end)
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | v%10)
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}
