/*
NAME
  dvbtime_test.go

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dvbtime

import (
	"testing"
	"time"
)

func TestBCDDurationRoundTrip(t *testing.T) {
	for _, sec := range []int{0, 1, 59, 60, 3599, 3600, 3661, 86399} {
		bcd := EncodeBCDDuration(sec)
		h, m, s, total := DecodeBCDDuration(bcd)
		if total != sec {
			t.Errorf("duration %d: got total %d (h=%d m=%d s=%d)", sec, total, h, m, s)
		}
	}
}

func TestMJDRoundTrip(t *testing.T) {
	start := time.Date(1901, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, time.December, 31, 23, 59, 59, 0, time.UTC)
	step := 37 * 24 * time.Hour // sample, not exhaustive day-by-day
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		mjd, bcd := EncodeMJD(ts)
		got := DecodeMJD(mjd, bcd)
		if !got.Equal(ts) {
			t.Fatalf("round trip mismatch for %v: got %v", ts, got)
		}
	}
}

func TestMJDRoundTripSeconds(t *testing.T) {
	base := time.Date(2024, time.June, 15, 13, 45, 7, 0, time.UTC)
	for s := 0; s < 120; s++ {
		ts := base.Add(time.Duration(s) * time.Second)
		mjd, bcd := EncodeMJD(ts)
		got := DecodeMJD(mjd, bcd)
		if !got.Equal(ts) {
			t.Fatalf("round trip mismatch for %v: got %v", ts, got)
		}
	}
}

func TestEuroDSTSofia2009(t *testing.T) {
	// 1234567890 unix == 2009-02-13T23:31:30Z, before DST start.
	ts := time.Unix(1234567890, 0).UTC()
	if InEuroDST(ts) {
		t.Fatalf("expected %v to be outside DST", ts)
	}
	start := EuroDSTStart(2009)
	if start.Weekday() != time.Sunday {
		t.Fatalf("DST start %v is not a Sunday", start)
	}
	end := EuroDSTEnd(2009)
	if end.Weekday() != time.Sunday {
		t.Fatalf("DST end %v is not a Sunday", end)
	}
	if !start.Before(end) {
		t.Fatalf("DST start %v not before end %v", start, end)
	}
}
