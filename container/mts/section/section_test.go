/*
NAME
  section_test.go

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package section

import (
	"bytes"
	"testing"

	"github.com/ausocean/tsparse/container/mts/crc"
	"github.com/ausocean/tsparse/container/mts/tspacket"
)

type discardLogger struct{}

func (*discardLogger) SetLevel(int8)                 {}
func (*discardLogger) Debug(string, ...interface{})  {}
func (*discardLogger) Info(string, ...interface{})   {}
func (*discardLogger) Warning(string, ...interface{}) {}
func (*discardLogger) Error(string, ...interface{})  {}
func (*discardLogger) Fatal(string, ...interface{})  {}

func init() { Log = &discardLogger{} }

func buildPAT(programs map[uint16]uint16, version byte) []byte {
	body := make([]byte, 0, 8+4*len(programs))
	h := &Header{
		TableID:                0x00,
		SectionSyntaxIndicator: true,
		TableIDExtension:       0x0001,
		VersionNumber:          version,
		CurrentNextIndicator:   true,
		SectionNumber:          0,
		LastSectionNumber:      0,
	}
	body = append(body, h.Bytes()...)
	for prog, pid := range programs {
		entry := make([]byte, 4)
		entry[0] = byte(prog >> 8)
		entry[1] = byte(prog)
		entry[2] = 0xe0 | byte(pid>>8)&0x1f
		entry[3] = byte(pid)
		body = append(body, entry...)
	}
	PutLength(body, uint16(len(body)-3+4)) // +4 for CRC not yet appended
	return crc.AppendCRC(body)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{
		TableID:                0x02,
		SectionSyntaxIndicator: true,
		PrivateIndicator:       false,
		SectionLength:          200,
		TableIDExtension:       0x1234,
		VersionNumber:          17,
		CurrentNextIndicator:   true,
		SectionNumber:          3,
		LastSectionNumber:      3,
	}
	got, err := ParseHeader(h.Bytes())
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if *got != *h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestAccumulatorSinglePacket(t *testing.T) {
	section := buildPAT(map[uint16]uint16{1: 0x100, 2: 0x200}, 0)
	packets := Generate(0x0000, 0, section)
	if len(packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(packets))
	}

	acc := NewAccumulator(0x0000)
	h, err := tspacket.ParseHeader(packets[0])
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	done, err := acc.Push(h, packets[0])
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !done {
		t.Fatalf("expected section complete after one packet")
	}
	got := acc.Section()
	if !bytes.Equal(got, section) {
		t.Fatalf("reassembled section mismatch:\ngot  %v\nwant %v", got, section)
	}
	if err := Verify(got); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestAccumulatorMultiPacket(t *testing.T) {
	programs := map[uint16]uint16{}
	for i := uint16(1); i <= 60; i++ {
		programs[i] = 0x100 + i
	}
	section := buildPAT(programs, 1)
	packets := Generate(0x0000, 5, section)
	if len(packets) < 2 {
		t.Fatalf("expected section to span multiple packets, got %d", len(packets))
	}

	acc := NewAccumulator(0x0000)
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
		if i < len(packets)-1 && done {
			t.Fatalf("packet %d: reported done early", i)
		}
	}
	if !done {
		t.Fatalf("expected section complete after last packet")
	}
	got := acc.Section()
	if !bytes.Equal(got, section) {
		t.Fatalf("reassembled section mismatch (len got=%d want=%d)", len(got), len(section))
	}
	if err := Verify(got); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestAccumulatorWrongPID(t *testing.T) {
	section := buildPAT(map[uint16]uint16{1: 0x100}, 0)
	packets := Generate(0x0010, 0, section)
	acc := NewAccumulator(0x0020)
	h, _ := tspacket.ParseHeader(packets[0])
	if _, err := acc.Push(h, packets[0]); err != ErrWrongPID {
		t.Fatalf("got %v, want ErrWrongPID", err)
	}
}

func TestAccumulatorCRCMismatch(t *testing.T) {
	section := buildPAT(map[uint16]uint16{1: 0x100}, 0)
	section[len(section)-1] ^= 0xff // corrupt CRC byte
	packets := Generate(0x0000, 0, section)
	acc := NewAccumulator(0x0000)
	h, _ := tspacket.ParseHeader(packets[0])
	done, err := acc.Push(h, packets[0])
	if err != nil || !done {
		t.Fatalf("Push: done=%v err=%v", done, err)
	}
	if err := Verify(acc.Section()); err != ErrCRCMismatch {
		t.Fatalf("got %v, want ErrCRCMismatch", err)
	}
}
