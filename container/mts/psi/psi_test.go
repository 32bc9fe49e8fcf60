/*
NAME
  psi_test.go

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/tsparse/container/mts/section"
	"github.com/ausocean/tsparse/container/mts/tspacket"
)

func init() {
	Log = &testLogger{}
}

// testLogger discards everything; satisfies logging.Logger without
// depending on *testing.T internals.
type testLogger struct{}

func (*testLogger) SetLevel(int8)               {}
func (*testLogger) Debug(string, ...interface{}) {}
func (*testLogger) Info(string, ...interface{})  {}
func (*testLogger) Warning(string, ...interface{}) {}
func (*testLogger) Error(string, ...interface{})  {}
func (*testLogger) Fatal(string, ...interface{})  {}

func TestPATMutateRoundTrip(t *testing.T) {
	pat := NewPAT(2)
	if err := pat.AddProgram(0, 0x10); err != nil { // NIT PID.
		t.Fatalf("AddProgram NIT: %v", err)
	}
	if err := pat.AddProgram(1, 0x100); err != nil {
		t.Fatalf("AddProgram 1: %v", err)
	}
	if err := pat.AddProgram(2, 0x200); err != nil {
		t.Fatalf("AddProgram 2: %v", err)
	}
	pat.RemoveProgram(2)
	if err := pat.AddProgram(3, 0x300); err != nil {
		t.Fatalf("AddProgram 3: %v", err)
	}

	sec := pat.Generate()
	got, err := ParsePAT(sec)
	if err != nil {
		t.Fatalf("ParsePAT: %v", err)
	}
	if !pat.IsSame(got) {
		t.Fatalf("round trip mismatch:\norig %+v\ngot  %+v", pat, got)
	}
	if diff := cmp.Diff(pat.Programs, got.Programs); diff != "" {
		t.Fatalf("program list mismatch (-want +got):\n%s", diff)
	}

	if err := pat.AddProgram(3, 0x999); err == nil {
		t.Fatalf("expected error adding duplicate program number")
	}
}

func TestEITShortEventOnePacket(t *testing.T) {
	eit := NewEIT(1, 2, 3)
	start := time.Unix(1234567890, 0).UTC()
	name := strings.Repeat("x", 95)
	short := strings.Repeat("y", 51)
	if err := eit.AddShortEvent(4, start, 3600*time.Second, "eng", name, short); err != nil {
		t.Fatalf("AddShortEvent: %v", err)
	}

	sec := eit.Generate()
	packets := section.Generate(0x0012, 0, sec)
	if len(packets) != 1 {
		t.Fatalf("expected section to fit in exactly one TS packet, got %d packets (section len %d)", len(packets), len(sec))
	}

	got, err := ParseEIT(sec)
	if err != nil {
		t.Fatalf("ParseEIT: %v", err)
	}
	if len(got.Events) != 1 || got.Events[0].EventID != 4 {
		t.Fatalf("event mismatch: %+v", got.Events)
	}
	if !got.Events[0].StartTime.Equal(start) {
		t.Fatalf("start time mismatch: got %v, want %v", got.Events[0].StartTime, start)
	}
	if got.Events[0].Duration != 3600*time.Second {
		t.Fatalf("duration mismatch: got %v", got.Events[0].Duration)
	}
}

func TestEITShortEventTwoPackets(t *testing.T) {
	eit := NewEIT(1, 2, 3)
	start := time.Unix(1234567890, 0).UTC()
	name := strings.Repeat("x", 95)
	short := strings.Repeat("y", 53)
	if err := eit.AddShortEvent(4, start, 3600*time.Second, "eng", name, short); err != nil {
		t.Fatalf("AddShortEvent: %v", err)
	}

	sec := eit.Generate()
	packets := section.Generate(0x0012, 0, sec)
	if len(packets) != 2 {
		t.Fatalf("expected section to span exactly 2 TS packets, got %d packets (section len %d)", len(packets), len(sec))
	}

	// The first packet carries a leading pointer_field byte, leaving
	// tspacket.MaxPayload-1 bytes of section in it; whatever remains
	// lands in the second packet, which the scenario expects to be
	// exactly the trailing 2 CRC bytes.
	leftover := len(sec) - (tspacket.MaxPayload - 1)
	if leftover != 2 {
		t.Fatalf("expected exactly 2 bytes of CRC in the second packet, got %d (section len %d)", leftover, len(sec))
	}

	acc := section.NewAccumulator(0x0012)
	var done bool
	for i, p := range packets {
		h, err := tspacket.ParseHeader(p)
		if err != nil {
			t.Fatalf("packet %d: ParseHeader: %v", i, err)
		}
		done, err = acc.Push(h, p)
		if err != nil {
			t.Fatalf("packet %d: Push: %v", i, err)
		}
		if i == 0 && done {
			t.Fatalf("expected section incomplete after first packet")
		}
	}
	if !done {
		t.Fatalf("expected section complete after second packet")
	}

	got, err := ParseEIT(acc.Section())
	if err != nil {
		t.Fatalf("ParseEIT: %v", err)
	}
	if len(got.Events) != 1 || got.Events[0].EventID != 4 {
		t.Fatalf("event mismatch: %+v", got.Events)
	}
}

func TestSDTService(t *testing.T) {
	sdt := NewSDT(2, 1)
	sdt.AddServiceDescriptor(1007, true, "BULSATCOM", "bTV")

	sec := sdt.Generate()
	got, err := ParseSDT(sec)
	if err != nil {
		t.Fatalf("ParseSDT: %v", err)
	}
	if len(got.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(got.Services))
	}
	svc := got.Services[0]
	if svc.ServiceID != 1007 {
		t.Fatalf("service id mismatch: got %d", svc.ServiceID)
	}
	d, ok := Find(svc.Descriptors, TagService)
	if !ok || len(d.Data) == 0 {
		t.Fatalf("expected a service_descriptor")
	}
	if d.Data[0] != 0x01 {
		t.Fatalf("expected video service type 0x01, got %#x", d.Data[0])
	}
}

func TestTOTSofiaDST(t *testing.T) {
	tot := NewTOT(time.Unix(1234567890, 0).UTC())
	tot.SetLocalTimeOffsetSofia(tot.UTC)

	sec := tot.Generate()
	if sec[0] != TableIDTOT {
		t.Fatalf("table_id mismatch: got %#x", sec[0])
	}

	got, err := ParseTOT(sec)
	if err != nil {
		t.Fatalf("ParseTOT: %v", err)
	}
	if len(got.Descriptors) != 1 || got.Descriptors[0].Tag != TagLocalTimeOffset {
		t.Fatalf("expected one local_time_offset_descriptor, got %+v", got.Descriptors)
	}
	d := got.Descriptors[0].Data
	if string(d[0:3]) != "BUL" {
		t.Fatalf("country code mismatch: got %q", d[0:3])
	}
}

func TestLCNDescriptorPrecedence(t *testing.T) {
	d := BuildLCNDescriptor([]LCNEntry{{ServiceID: 1007, Visible: true, LCN: 0x123}})
	got := ParseLCNDescriptor(d.Data)
	if len(got) != 1 || got[0].LCN != 0x123 {
		t.Fatalf("LCN round trip mismatch: got %+v, want LCN=0x123", got)
	}
}

func TestCAIDClassification(t *testing.T) {
	cases := map[uint16]CASystem{
		0x0100: CASeca,
		0x01FF: CASeca,
		0x0562: CAViaccess,
		0x0623: CAIrdeto,
		0x0905: CAVideoguard,
		0x0B01: CAConax,
		0x0D10: CACryptoworks,
		0x1801: CANagra,
		0x4AE0: CADreCrypt,
		0x5504: CAGriffin,
		0xffff: CAUnknown,
	}
	for caid, want := range cases {
		if got := ClassifyCAID(caid); got != want {
			t.Errorf("ClassifyCAID(%#x) = %v, want %v", caid, got, want)
		}
	}
}

func TestDescriptorWalkTruncated(t *testing.T) {
	b := []byte{0x48, 0x05, 1, 2, 3} // declares length 5 but only 3 bytes follow.
	ds, err := Walk(b)
	if err == nil {
		t.Fatalf("expected truncation error")
	}
	if len(ds) != 0 {
		t.Fatalf("expected no descriptors parsed, got %d", len(ds))
	}

	b2 := append([]byte{0x02, 0x01, 0xAA}, b...)
	ds2, err2 := Walk(b2)
	if err2 == nil {
		t.Fatalf("expected truncation error")
	}
	if len(ds2) != 1 || ds2[0].Tag != 0x02 {
		t.Fatalf("expected one descriptor parsed before truncation, got %+v", ds2)
	}
}
