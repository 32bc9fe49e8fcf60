/*
NAME
  private.go

DESCRIPTION
  private.go implements the fallback for any table_id this package does
  not otherwise interpret: the section is reassembled and CRC-checked
  (when the section_syntax_indicator is set) but its body is kept opaque.

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
	"fmt"
	"io"

	"github.com/ausocean/tsparse/container/mts/crc"
	"github.com/ausocean/tsparse/container/mts/section"
)

// PrivateSection holds an uninterpreted section: every byte between the
// extended section header and the trailing CRC (when present) is kept
// as opaque Data.
type PrivateSection struct {
	Header *section.Header
	Data   []byte
	HasCRC bool
}

// ParsePrivateSection parses sec as a private section. If sec's
// section_syntax_indicator is set, the trailing 4 bytes are verified as
// a CRC-32/MPEG-2 and excluded from Data; otherwise sec is not
// CRC-protected and Data is everything after the short 3-byte header.
func ParsePrivateSection(sec []byte) (*PrivateSection, error) {
	if len(sec) < shortHeaderLen+1 {
		return nil, section.ErrShortSection
	}
	syntax := sec[1]&0x80 != 0
	if !syntax {
		return &PrivateSection{Data: append([]byte(nil), sec[shortHeaderLen:]...)}, nil
	}

	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	return &PrivateSection{
		Header: h,
		Data:   append([]byte(nil), sec[section.HeaderLen:len(sec)-4]...),
		HasCRC: true,
	}, nil
}

// Generate re-serialises the private section.
func (p *PrivateSection) Generate() []byte {
	if !p.HasCRC || p.Header == nil {
		body := make([]byte, shortHeaderLen+len(p.Data))
		copy(body[shortHeaderLen:], p.Data)
		return body
	}
	body := make([]byte, section.HeaderLen, section.HeaderLen+len(p.Data)+4)
	copy(body, p.Header.Bytes())
	body = append(body, p.Data...)
	section.PutLength(body, uint16(len(body)-3+4))
	return crc.AppendCRC(body)
}

// Dump writes a human-readable summary of the private section to w.
func (p *PrivateSection) Dump(w io.Writer) {
	id := byte(0)
	if p.Header != nil {
		id = p.Header.TableID
	}
	fmt.Fprintf(w, "private section table_id=%#x len=%d\n", id, len(p.Data))
}
