/*
NAME
  castable.go

DESCRIPTION
  castable.go classifies Conditional Access system IDs into vendor
  families and provides the three CA_descriptor lookup variants used
  against CAT and PMT program_info/ES_info: by CA system, by exact CAID,
  and by exact ECM/EMM PID.

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

// CASystem identifies a Conditional Access vendor family.
type CASystem int

const (
	CAUnknown CASystem = iota
	CASeca
	CAViaccess
	CAIrdeto
	CAVideoguard
	CAConax
	CACryptoworks
	CANagra
	CADreCrypt
	CABulCrypt
	CAGriffin
	CADGCrypt
)

// Individual CAIDs not covered by a contiguous vendor range.
const (
	caidDGCrypt = 0x4ABF
)

// caidDreCrypt holds the DreCrypt CAIDs.
var caidDreCrypt = [...]uint16{0x4AE0, 0x4AE1}

// caidBulCrypt holds the BulCrypt CAIDs.
var caidBulCrypt = [...]uint16{0x5581, 0x4AEE}

// caidGriffin holds the Griffin CAIDs.
var caidGriffin = [...]uint16{0x5501, 0x5504, 0x5506, 0x5508, 0x5509, 0x550E, 0x5511}

func containsCAID(ids []uint16, caid uint16) bool {
	for _, id := range ids {
		if id == caid {
			return true
		}
	}
	return false
}

// ClassifyCAID maps a 16-bit CA_system_id to its vendor family.
func ClassifyCAID(caid uint16) CASystem {
	switch {
	case caid >= 0x0100 && caid <= 0x01FF:
		return CASeca
	case caid >= 0x0500 && caid <= 0x05FF:
		return CAViaccess
	case caid >= 0x0600 && caid <= 0x06FF:
		return CAIrdeto
	case caid >= 0x0900 && caid <= 0x09FF:
		return CAVideoguard
	case caid >= 0x0B00 && caid <= 0x0BFF:
		return CAConax
	case caid >= 0x0D00 && caid <= 0x0DFF:
		return CACryptoworks
	case caid >= 0x1800 && caid <= 0x18FF:
		return CANagra
	case caid == caidDGCrypt:
		return CADGCrypt
	case containsCAID(caidDreCrypt[:], caid):
		return CADreCrypt
	case containsCAID(caidBulCrypt[:], caid):
		return CABulCrypt
	case containsCAID(caidGriffin[:], caid):
		return CAGriffin
	default:
		return CAUnknown
	}
}

// FindCADescriptorBySystem scans ds for the first CA_descriptor whose
// CAID classifies to system, returning it decoded.
func FindCADescriptorBySystem(ds []Descriptor, system CASystem) (caid, pid uint16, private []byte, ok bool) {
	for _, d := range ds {
		if d.Tag != TagCA {
			continue
		}
		id, p, priv, valid := ParseCADescriptor(d.Data)
		if valid && ClassifyCAID(id) == system {
			return id, p, priv, true
		}
	}
	return 0, 0, nil, false
}

// FindCADescriptorByCAID scans ds for a CA_descriptor with the exact
// given CAID.
func FindCADescriptorByCAID(ds []Descriptor, caid uint16) (pid uint16, private []byte, ok bool) {
	for _, d := range ds {
		if d.Tag != TagCA {
			continue
		}
		id, p, priv, valid := ParseCADescriptor(d.Data)
		if valid && id == caid {
			return p, priv, true
		}
	}
	return 0, nil, false
}

// FindCADescriptorByPID scans ds for a CA_descriptor carrying the exact
// given ECM/EMM PID.
func FindCADescriptorByPID(ds []Descriptor, pid uint16) (caid uint16, private []byte, ok bool) {
	for _, d := range ds {
		if d.Tag != TagCA {
			continue
		}
		id, p, priv, valid := ParseCADescriptor(d.Data)
		if valid && p == pid {
			return id, priv, true
		}
	}
	return 0, nil, false
}

// String names the CA vendor family.
func (c CASystem) String() string {
	switch c {
	case CASeca:
		return "SECA"
	case CAViaccess:
		return "Viaccess"
	case CAIrdeto:
		return "Irdeto"
	case CAVideoguard:
		return "Videoguard"
	case CAConax:
		return "Conax"
	case CACryptoworks:
		return "Cryptoworks"
	case CANagra:
		return "Nagra"
	case CADreCrypt:
		return "DreCrypt"
	case CABulCrypt:
		return "BulCrypt"
	case CAGriffin:
		return "Griffin"
	case CADGCrypt:
		return "DGCrypt"
	default:
		return "unknown"
	}
}
