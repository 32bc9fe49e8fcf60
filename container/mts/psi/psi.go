/*
NAME
  psi.go

DESCRIPTION
  psi.go provides the shared logging injection point and small wire
  helpers used across the table codecs in this package.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package psi implements parsing, generation and mutation of MPEG-2 TS
// Program Specific Information and DVB Service Information tables: PAT,
// CAT, PMT, NIT, SDT, EIT, TDT, TOT and generic private sections.
package psi

import "github.com/ausocean/utils/logging"

// Log is the package-wide logging destination used by table codecs.
// Callers must assign it during program initialisation (e.g. Log =
// logging.New(...), or Log = (*logging.TestLogger)(t) in tests) before
// using anything in this package; it is not safe to reassign
// concurrently with use.
var Log logging.Logger

// pkg identifies this package's log lines, matching the convention used
// elsewhere in this module.
const pkg = "psi: "

func uint16From(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func putUint16(b []byte, v uint16) { b[0] = byte(v >> 8); b[1] = byte(v) }
