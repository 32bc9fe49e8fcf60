/*
NAME
  descriptor.go

DESCRIPTION
  descriptor.go implements the tag-length-value descriptor walker shared
  by CAT, PMT, NIT, SDT, EIT and TOT, plus builders for the descriptor
  types these tables commonly carry.

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
	"time"

	"github.com/ausocean/tsparse/container/mts/dvbtime"
)

func unixToTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// Descriptor tags named by this package. Walk handles any tag, whether
// listed here or not.
const (
	TagVideoStream           = 0x02
	TagAudioStream           = 0x03
	TagRegistration          = 0x05
	TagCA                    = 0x09
	TagLanguage              = 0x0A
	TagNetworkName           = 0x40
	TagServiceList           = 0x41
	TagCableDelivery         = 0x44
	TagBouquetName           = 0x47
	TagService               = 0x48
	TagShortEvent            = 0x4D
	TagExtendedEvent         = 0x4E
	TagLinkage               = 0x4A
	TagComponent             = 0x50
	TagTeletext              = 0x56
	TagSubtitling            = 0x59
	TagPrivateDataSpecifier  = 0x5F
	TagFrequencyList         = 0x62
	TagDataBroadcast         = 0x64
	TagPDC                   = 0x69
	TagAC3                   = 0x6A
	TagLocalTimeOffset       = 0x58
	TagTimeShiftedEvent      = 0x4F
	TagMultilingualComponent = 0x5E
	TagDTS                   = 0x7B
	TagLCN                   = 0x83 // Logical channel number, NorDig/EACEM private.
)

// Descriptor is a single parsed tag-length-value descriptor entry.
type Descriptor struct {
	Tag  byte
	Data []byte // raw payload, length bytes, not including tag/length.
}

// ErrTruncatedDescriptor indicates a descriptor whose declared length
// overruns the remaining bytes in the list.
//
// Per the walk discipline used throughout this package, a truncated
// descriptor stops the walk but does not invalidate entries already
// parsed.
type ErrTruncatedDescriptor struct {
	Tag    byte
	Want   int
	Remain int
}

func (e *ErrTruncatedDescriptor) Error() string {
	return fmt.Sprintf("descriptor: tag %#x declares length %d, only %d bytes remain", e.Tag, e.Want, e.Remain)
}

// Walk parses b as a sequence of tag(8)/length(8)/data descriptors,
// returning every descriptor that was fully present. If a descriptor's
// declared length overruns the remaining bytes, walking stops there and
// a non-nil error describing the truncation is also returned.
func Walk(b []byte) ([]Descriptor, error) {
	var out []Descriptor
	for len(b) > 0 {
		if len(b) < 2 {
			return out, &ErrTruncatedDescriptor{Tag: b[0], Want: 0, Remain: len(b)}
		}
		tag := b[0]
		length := int(b[1])
		if 2+length > len(b) {
			return out, &ErrTruncatedDescriptor{Tag: tag, Want: length, Remain: len(b) - 2}
		}
		out = append(out, Descriptor{Tag: tag, Data: append([]byte(nil), b[2:2+length]...)})
		b = b[2+length:]
	}
	return out, nil
}

// Bytes serialises d back to its tag/length/data wire form.
func (d Descriptor) Bytes() []byte {
	out := make([]byte, 2+len(d.Data))
	out[0] = d.Tag
	out[1] = byte(len(d.Data))
	copy(out[2:], d.Data)
	return out
}

// Build concatenates the wire form of each descriptor in order.
func Build(ds []Descriptor) []byte {
	var out []byte
	for _, d := range ds {
		out = append(out, d.Bytes()...)
	}
	return out
}

// Find returns the first descriptor in ds with the given tag, and
// whether one was found.
func Find(ds []Descriptor, tag byte) (Descriptor, bool) {
	for _, d := range ds {
		if d.Tag == tag {
			return d, true
		}
	}
	return Descriptor{}, false
}

// CADescriptor is the decoded form of a CA_descriptor (tag 0x09): a
// Conditional Access system ID and the PID of its ECM/EMM stream,
// followed by optional private data.
type CADescriptor struct {
	CASystemID byte // top byte of the 16-bit CA_system_id; ParseCADescriptor returns the full 16-bit ID.
	CAPID      uint16
	Private    []byte
}

// ParseCADescriptor decodes a CA_descriptor payload (the Data field of a
// Descriptor with Tag==TagCA). It requires at least 4 bytes.
func ParseCADescriptor(data []byte) (CAID uint16, pid uint16, private []byte, ok bool) {
	if len(data) < 4 {
		return 0, 0, nil, false
	}
	CAID = uint16(data[0])<<8 | uint16(data[1])
	pid = uint16(data[2]&0x1f)<<8 | uint16(data[3])
	private = data[4:]
	return CAID, pid, private, true
}

// BuildCADescriptor constructs a CA_descriptor with the given CA system
// ID, ECM/EMM PID, and optional private data.
func BuildCADescriptor(caID, pid uint16, private []byte) Descriptor {
	data := make([]byte, 4+len(private))
	data[0] = byte(caID >> 8)
	data[1] = byte(caID)
	data[2] = 0xe0 | byte(pid>>8)&0x1f
	data[3] = byte(pid)
	copy(data[4:], private)
	return Descriptor{Tag: TagCA, Data: data}
}

// BuildNetworkNameDescriptor builds a network_name_descriptor (tag 0x40).
func BuildNetworkNameDescriptor(name string) Descriptor {
	return Descriptor{Tag: TagNetworkName, Data: []byte(name)}
}

// BuildCableDeliverySystemDescriptor builds a cable_delivery_system_descriptor
// (tag 0x44) with FEC_outer and FEC_inner both set to "not defined" (0).
func BuildCableDeliverySystemDescriptor(frequencyHz uint32, symbolRate uint32, modulation byte) Descriptor {
	data := make([]byte, 11)
	putBCD8(data[0:4], frequencyHz/100) // frequency in 100 Hz units, BCD-coded digits.
	data[4] = 0                         // reserved
	data[5] = 0                         // reserved (high nibble), FEC_outer = not defined (low nibble)
	data[6] = modulation
	// symbolRate fills the 7 BCD digits of symbol_rate; FEC_inner, the low
	// 4 bits of the last byte, is left as "not defined" (0).
	putBCD8(data[7:11], symbolRate*10)
	return Descriptor{Tag: TagCableDelivery, Data: data}
}

func putBCD8(dst []byte, v uint32) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v % 10)
		v /= 10
		dst[i] |= byte(v%10) << 4
		v /= 10
	}
}

// ServiceListEntry is one {service_id, service_type} pair carried by a
// service_list_descriptor.
type ServiceListEntry struct {
	ServiceID   uint16
	ServiceType byte
}

// MaxServiceListEntries is the largest number of entries a single
// service_list_descriptor can carry (255 byte payload / 3 bytes each).
const MaxServiceListEntries = 85

// BuildServiceListDescriptor builds a service_list_descriptor (tag 0x41).
// It silently truncates to MaxServiceListEntries entries.
func BuildServiceListDescriptor(entries []ServiceListEntry) Descriptor {
	if len(entries) > MaxServiceListEntries {
		entries = entries[:MaxServiceListEntries]
	}
	data := make([]byte, 0, 3*len(entries))
	for _, e := range entries {
		data = append(data, byte(e.ServiceID>>8), byte(e.ServiceID), e.ServiceType)
	}
	return Descriptor{Tag: TagServiceList, Data: data}
}

// BuildFrequencyListDescriptor builds a frequency_list_descriptor (tag
// 0x62). codingType selects the frequency unit: 1 satellite, 2 cable, 3
// terrestrial.
func BuildFrequencyListDescriptor(codingType byte, frequencies []uint32) Descriptor {
	data := make([]byte, 1+4*len(frequencies))
	data[0] = codingType & 0x03
	for i, f := range frequencies {
		data[1+4*i] = byte(f >> 24)
		data[2+4*i] = byte(f >> 16)
		data[3+4*i] = byte(f >> 8)
		data[4+4*i] = byte(f)
	}
	return Descriptor{Tag: TagFrequencyList, Data: data}
}

// BuildPrivateDataSpecifierDescriptor builds the NorDig-style private
// data specifier descriptor (tag 0x5F) that precedes private descriptors
// such as the logical channel number list.
func BuildPrivateDataSpecifierDescriptor(specifier uint32) Descriptor {
	data := []byte{byte(specifier >> 24), byte(specifier >> 16), byte(specifier >> 8), byte(specifier)}
	return Descriptor{Tag: TagPrivateDataSpecifier, Data: data}
}

// LCNEntry is one {service_id, LCN} pair in a logical_channel_number
// descriptor.
type LCNEntry struct {
	ServiceID uint16
	Visible   bool
	LCN       uint16 // 14 bits: the 6 bits atop the visible flag, plus the following byte.
}

// BuildLCNDescriptor builds a logical_channel_number_descriptor (tag
// 0x83, NorDig/EACEM private, carried after a private data specifier
// descriptor identifying the NorDig registration).
func BuildLCNDescriptor(entries []LCNEntry) Descriptor {
	data := make([]byte, 0, 4*len(entries))
	for _, e := range entries {
		data = append(data, byte(e.ServiceID>>8), byte(e.ServiceID))
		visible := byte(0)
		if e.Visible {
			visible = 1
		}
		data = append(data, visible<<7|byte(e.LCN>>8)&0x3f, byte(e.LCN))
	}
	return Descriptor{Tag: TagLCN, Data: data}
}

// ParseLCNDescriptor decodes a logical_channel_number_descriptor payload.
//
// The LCN high bits must be read as (byte & 0x3F) shifted left 8, not as
// the operator-precedence error (byte &~ 0xc0 << 8, which due to C's
// precedence rules evaluates as byte &~ (0xc0<<8) and leaves the high
// bits unmasked) found in the reference decoder this is based on.
func ParseLCNDescriptor(data []byte) []LCNEntry {
	var out []LCNEntry
	for len(data) >= 4 {
		id := uint16(data[0])<<8 | uint16(data[1])
		visible := data[2]&0x80 != 0
		lcn := uint16(data[2]&0x3f)<<8 | uint16(data[3])
		out = append(out, LCNEntry{ServiceID: id, Visible: visible, LCN: lcn})
		data = data[4:]
	}
	return out
}

// BuildServiceDescriptor builds a service_descriptor (tag 0x48).
// serviceType 0x01 is digital television, 0x02 is digital radio.
func BuildServiceDescriptor(serviceType byte, provider, name string) Descriptor {
	data := make([]byte, 0, 3+len(provider)+len(name))
	data = append(data, serviceType)
	data = append(data, byte(len(provider)))
	data = append(data, provider...)
	data = append(data, byte(len(name)))
	data = append(data, name...)
	return Descriptor{Tag: TagService, Data: data}
}

// BuildShortEventDescriptor builds a short_event_descriptor (tag 0x4D).
// lang is a 3-byte ISO-639-2 language code.
func BuildShortEventDescriptor(lang string, name, text string) Descriptor {
	data := make([]byte, 0, 3+1+len(name)+1+len(text))
	data = append(data, padLang(lang)...)
	data = append(data, byte(len(name)))
	data = append(data, name...)
	data = append(data, byte(len(text)))
	data = append(data, text...)
	return Descriptor{Tag: TagShortEvent, Data: data}
}

// BuildExtendedEventDescriptor builds an extended_event_descriptor (tag
// 0x4E) with an empty items list and the given long text.
func BuildExtendedEventDescriptor(descriptorNumber, lastDescriptorNumber byte, lang string, text string) Descriptor {
	data := make([]byte, 0, 1+3+1+len(text))
	data = append(data, descriptorNumber<<4|lastDescriptorNumber&0x0f)
	data = append(data, padLang(lang)...)
	data = append(data, 0) // length_of_items = 0.
	data = append(data, byte(len(text)))
	data = append(data, text...)
	return Descriptor{Tag: TagExtendedEvent, Data: data}
}

func padLang(lang string) []byte {
	b := [3]byte{' ', ' ', ' '}
	copy(b[:], lang)
	return b[:]
}

// LocalTimeOffset is the decoded form of a local_time_offset_descriptor
// (tag 0x58) entry.
type LocalTimeOffset struct {
	CountryCode   string // 3-byte ISO-3166 alpha-3.
	CountryRegion byte   // 6 bits.
	Polarity      bool   // true = negative offset.
	CurrentOffset int    // seconds.
	NextOffset    int    // seconds.
	ChangeTime    int64  // unix seconds at which NextOffset takes effect.
}

// BuildLocalTimeOffsetDescriptor builds a local_time_offset_descriptor
// with a single entry.
func BuildLocalTimeOffsetDescriptor(l LocalTimeOffset) Descriptor {
	data := make([]byte, 13)
	copy(data[0:3], padLang(l.CountryCode))
	data[3] = l.CountryRegion << 2
	if l.Polarity {
		data[3] |= 0x01
	}
	curBCD := dvbtime.EncodeBCDDuration(absInt(l.CurrentOffset))
	data[4] = byte(curBCD >> 16)
	data[5] = byte(curBCD >> 8)
	mjd, bcd := dvbtime.EncodeMJD(unixToTime(l.ChangeTime))
	data[6] = byte(mjd >> 8)
	data[7] = byte(mjd)
	data[8] = byte(bcd >> 16)
	data[9] = byte(bcd >> 8)
	data[10] = byte(bcd)
	nextBCD := dvbtime.EncodeBCDDuration(absInt(l.NextOffset))
	data[11] = byte(nextBCD >> 16)
	data[12] = byte(nextBCD >> 8)
	return Descriptor{Tag: TagLocalTimeOffset, Data: data}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
