/*
NAME
  tsprobe

DESCRIPTION
  tsprobe reads a raw MPEG-2 transport stream file, reassembles the
  PSI/SI tables and PES units it carries, and dumps each as it
  completes.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements tsprobe, a thin diagnostic CLI over the
// container/mts table and PES reassembly packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tsparse/container/mts/pes"
	"github.com/ausocean/tsparse/container/mts/psi"
	"github.com/ausocean/tsparse/container/mts/section"
	"github.com/ausocean/tsparse/container/mts/tspacket"
	"github.com/ausocean/utils/logging"
)

// Logging configuration, matching the teacher's cmd/rv convention.
const (
	logPath      = "/var/log/tsprobe/tsprobe.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 3
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const packetLen = 188

func main() {
	path := flag.String("file", "", "path to a .ts file to probe")
	verbose := flag.Bool("v", false, "log at debug verbosity")
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "tsprobe: -file is required")
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	level := int8(logVerbosity)
	if *verbose {
		level = logging.Debug
	}
	log := logging.New(level, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	psi.Log = log
	section.Log = log
	pes.Log = log

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal("could not open file", "error", err)
	}
	defer f.Close()

	d := newDispatcher(os.Stdout)

	buf := make([]byte, packetLen)
	for {
		_, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("short read, stopping", "error", err)
			break
		}
		d.handle(buf)
	}
}

// dispatcher routes TS packets by PID to the appropriate section
// accumulator or PES reassembler, and dumps each completed table/unit.
type dispatcher struct {
	w   io.Writer
	pat *psi.PAT

	// section accumulators keyed by PID.
	accs map[uint16]*section.Accumulator
	// the table kind expected on each known PID.
	kinds map[uint16]string
	// PMTs keyed by the program's PMT PID.
	pmts map[uint16]*psi.PMT
	// PES reassemblers keyed by elementary stream PID.
	reassemblers map[uint16]*pes.Reassembler
}

func newDispatcher(w io.Writer) *dispatcher {
	d := &dispatcher{
		w:            w,
		accs:         make(map[uint16]*section.Accumulator),
		kinds:        make(map[uint16]string),
		pmts:         make(map[uint16]*psi.PMT),
		reassemblers: make(map[uint16]*pes.Reassembler),
	}
	d.watch(psi.PIDPAT, "PAT")
	d.watch(psi.PIDCAT, "CAT")
	d.watch(psi.PIDNIT, "NIT")
	d.watch(psi.PIDSDT, "SDT")
	d.watch(psi.PIDEIT, "EIT")
	d.watch(psi.PIDTDT, "TDT/TOT")
	return d
}

func (d *dispatcher) watch(pid uint16, kind string) {
	d.accs[pid] = section.NewAccumulator(pid)
	d.kinds[pid] = kind
}

func (d *dispatcher) handle(packet []byte) {
	h, err := tspacket.ParseHeader(packet)
	if err != nil {
		psi.Log.Debug("tsprobe: bad TS packet, skipping", "error", err)
		return
	}

	if r, ok := d.reassemblers[h.PID]; ok {
		payload := tspacket.Payload(h, packet)
		if len(payload) == 0 {
			return
		}
		u, err := r.Push(payload, h.PUSI)
		if err != nil {
			pes.Log.Debug("tsprobe: PES push failed", "pid", h.PID, "error", err)
		}
		if u != nil {
			u.Dump(d.w)
		}
		return
	}

	acc, ok := d.accs[h.PID]
	if !ok {
		return
	}
	done, err := acc.Push(h, packet)
	if err != nil {
		psi.Log.Debug("tsprobe: section push failed", "pid", h.PID, "kind", d.kinds[h.PID], "error", err)
		acc.Reset()
		return
	}
	if !done {
		return
	}
	sec := append([]byte(nil), acc.Section()...)
	acc.Reset()
	d.complete(h.PID, sec)
}

func (d *dispatcher) complete(pid uint16, sec []byte) {
	switch pid {
	case psi.PIDPAT:
		pat, err := psi.ParsePAT(sec)
		if err != nil {
			psi.Log.Debug("tsprobe: PAT parse failed", "error", err)
			return
		}
		d.pat = pat
		pat.Dump(d.w)
		for _, p := range pat.Programs {
			if p.ProgramNumber == 0 {
				continue // network PID entry, not a program.
			}
			if _, ok := d.pmts[p.PID]; !ok {
				d.pmts[p.PID] = nil
				d.accs[p.PID] = section.NewAccumulator(p.PID)
				d.kinds[p.PID] = "PMT"
			}
		}
	case psi.PIDCAT:
		cat, err := psi.ParseCAT(sec)
		if err != nil {
			psi.Log.Debug("tsprobe: CAT parse failed", "error", err)
			return
		}
		cat.Dump(d.w)
	case psi.PIDNIT:
		nit, err := psi.ParseNIT(sec)
		if err != nil {
			psi.Log.Debug("tsprobe: NIT parse failed", "error", err)
			return
		}
		nit.Dump(d.w)
	case psi.PIDSDT:
		sdt, err := psi.ParseSDT(sec)
		if err != nil {
			psi.Log.Debug("tsprobe: SDT parse failed", "error", err)
			return
		}
		sdt.Dump(d.w)
	case psi.PIDEIT:
		eit, err := psi.ParseEIT(sec)
		if err != nil {
			psi.Log.Debug("tsprobe: EIT parse failed", "error", err)
			return
		}
		eit.Dump(d.w)
	case psi.PIDTDT:
		if sec[0] == psi.TableIDTDT {
			tdt, err := psi.ParseTDT(sec)
			if err != nil {
				psi.Log.Debug("tsprobe: TDT parse failed", "error", err)
				return
			}
			tdt.Dump(d.w)
			return
		}
		tot, err := psi.ParseTOT(sec)
		if err != nil {
			psi.Log.Debug("tsprobe: TOT parse failed", "error", err)
			return
		}
		tot.Dump(d.w)
	default:
		if _, ok := d.pmts[pid]; ok {
			pmt, err := psi.ParsePMT(sec)
			if err != nil {
				psi.Log.Debug("tsprobe: PMT parse failed", "pid", pid, "error", err)
				return
			}
			d.pmts[pid] = pmt
			pmt.Dump(d.w)
			for _, s := range pmt.Streams {
				r := pes.NewReassembler(s.PID)
				r.SetStreamInfo(s.StreamType, s.Descriptors)
				d.reassemblers[s.PID] = r
				delete(d.accs, s.PID)
			}
		}
	}
}
