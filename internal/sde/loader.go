package sde

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
)

// File names of the reference tables inside the data directory.
const (
	JumpsFile   = "system_jumps.csv"
	SystemsFile = "system_description.csv"
	StaticsFile = "statics.csv"
)

// Data holds the static reference data: system facts, stargate pairs and the
// wormhole type code table. It is immutable after loading.
type Data struct {
	Systems       map[int32]*SolarSystem // systemID -> system
	SystemByName  map[string]int32       // lowercase name -> systemID
	SystemNames   []string               // all system names for autocomplete
	Gates         [][2]int32             // stargate pairs, as listed
	WormholeSizes map[string]graph.Size  // upper-case type code -> size
}

// SolarSystem represents an EVE solar system.
type SolarSystem struct {
	ID       int32
	Name     string
	Class    Class
	Security float64
	RegionID int32 // 0 when the table has no region column
}

// Load reads the three reference tables from dir.
func Load(dir string) (*Data, error) {
	open := func(name string) (*os.File, error) {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return f, nil
	}
	jumps, err := open(JumpsFile)
	if err != nil {
		return nil, err
	}
	defer jumps.Close()
	systems, err := open(SystemsFile)
	if err != nil {
		return nil, err
	}
	defer systems.Close()
	statics, err := open(StaticsFile)
	if err != nil {
		return nil, err
	}
	defer statics.Close()

	logger.Info("SDE", fmt.Sprintf("Loading reference data from %s", dir))
	data, err := Parse(jumps, systems, statics)
	if err != nil {
		return nil, err
	}

	logger.Section("SDE Statistics")
	logger.Stats("Systems", len(data.Systems))
	logger.Stats("Gates", len(data.Gates))
	logger.Stats("Wormhole types", len(data.WormholeSizes))
	return data, nil
}

// Parse builds Data from semicolon-delimited tables:
//
//	jumps:   fromSystemID;toSystemID
//	systems: systemID;name;class;security[;regionID]
//	statics: code;size (0=Small .. 3=X-large)
//
// Malformed rows are skipped with a warning.
func Parse(jumps, systems, statics io.Reader) (*Data, error) {
	d := &Data{
		Systems:       make(map[int32]*SolarSystem),
		SystemByName:  make(map[string]int32),
		WormholeSizes: make(map[string]graph.Size),
	}
	if err := d.loadSystems(systems); err != nil {
		return nil, fmt.Errorf("load systems: %w", err)
	}
	if err := d.loadJumps(jumps); err != nil {
		return nil, fmt.Errorf("load jumps: %w", err)
	}
	if err := d.loadStatics(statics); err != nil {
		return nil, fmt.Errorf("load statics: %w", err)
	}
	sort.Strings(d.SystemNames)
	return d, nil
}

func (d *Data) loadSystems(r io.Reader) error {
	skipped := 0
	err := readTable(r, func(row []string) error {
		if len(row) < 4 {
			return errors.New("short row")
		}
		id, err := parseID(row[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(row[1])
		if name == "" {
			return errors.New("empty name")
		}
		sec, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return err
		}
		sys := &SolarSystem{ID: id, Name: name, Class: ParseClass(row[2]), Security: sec}
		if len(row) > 4 {
			if region, err := parseID(row[4]); err == nil {
				sys.RegionID = region
			}
		}
		d.Systems[id] = sys
		d.SystemByName[strings.ToLower(name)] = id
		d.SystemNames = append(d.SystemNames, name)
		return nil
	}, &skipped)
	if skipped > 0 {
		logger.Warn("SDE", fmt.Sprintf("Skipped %d malformed system rows", skipped))
	}
	return err
}

func (d *Data) loadJumps(r io.Reader) error {
	skipped := 0
	err := readTable(r, func(row []string) error {
		if len(row) < 2 {
			return errors.New("short row")
		}
		from, err := parseID(row[0])
		if err != nil {
			return err
		}
		to, err := parseID(row[1])
		if err != nil {
			return err
		}
		if from == to {
			return errors.New("self jump")
		}
		d.Gates = append(d.Gates, [2]int32{from, to})
		return nil
	}, &skipped)
	if skipped > 0 {
		logger.Warn("SDE", fmt.Sprintf("Skipped %d malformed jump rows", skipped))
	}
	return err
}

func (d *Data) loadStatics(r io.Reader) error {
	skipped := 0
	err := readTable(r, func(row []string) error {
		if len(row) < 2 {
			return errors.New("short row")
		}
		code := strings.ToUpper(strings.TrimSpace(row[0]))
		n, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return err
		}
		size := graph.Size(n)
		if code == "" || !size.Valid() {
			return errors.New("bad static")
		}
		d.WormholeSizes[code] = size
		return nil
	}, &skipped)
	if skipped > 0 {
		logger.Warn("SDE", fmt.Sprintf("Skipped %d malformed wormhole type rows", skipped))
	}
	return err
}

// readTable feeds every non-empty row of a semicolon-delimited table to fn.
// Rows rejected by fn are counted in skipped.
func readTable(r io.Reader, fn func([]string) error, skipped *int) error {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				*skipped++
				continue
			}
			return err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if err := fn(row); err != nil {
			*skipped++
		}
	}
}

func parseID(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

// NewGraph builds a fresh graph containing every system and stargate.
// No wormhole edges are present.
func (d *Data) NewGraph() *graph.Graph {
	g := graph.New()
	for id := range d.Systems {
		g.AddSystem(id)
	}
	for _, p := range d.Gates {
		g.AddGate(p[0], p[1])
	}
	return g
}

// System returns the facts for id, or nil.
func (d *Data) System(id int32) *SolarSystem {
	return d.Systems[id]
}

// SystemID resolves a system name (case-insensitive).
func (d *Data) SystemID(name string) (int32, bool) {
	id, ok := d.SystemByName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// SystemName returns the canonical name for id.
func (d *Data) SystemName(id int32) (string, bool) {
	if sys, ok := d.Systems[id]; ok {
		return sys.Name, true
	}
	return "", false
}

// ClassOf returns the class of id; unknown systems are ClassUnknown.
func (d *Data) ClassOf(id int32) Class {
	if sys, ok := d.Systems[id]; ok {
		return sys.Class
	}
	return ClassUnknown
}

// SizeByCode looks up a wormhole type code such as "K162" or "h296".
func (d *Data) SizeByCode(code string) (graph.Size, bool) {
	size, ok := d.WormholeSizes[strings.ToUpper(strings.TrimSpace(code))]
	return size, ok
}

// SizeBySystems infers a wormhole size from the classes of its two endpoints.
func (d *Data) SizeBySystems(a, b int32) (graph.Size, bool) {
	return InferSize(d.ClassOf(a), d.ClassOf(b))
}

// WormholeSize determines the size of a wormhole from source to dest. The
// source code is tried first, then the destination code, then the class pair.
func (d *Data) WormholeSize(codeSource, codeDest string, source, dest int32) (graph.Size, bool) {
	if size, ok := d.SizeByCode(codeSource); ok {
		return size, true
	}
	if size, ok := d.SizeByCode(codeDest); ok {
		return size, true
	}
	return d.SizeBySystems(source, dest)
}

// Search returns up to limit system names containing q (case-insensitive),
// prefix matches first.
func (d *Data) Search(q string, limit int) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" || limit <= 0 {
		return nil
	}
	var prefix, contains []string
	for _, name := range d.SystemNames {
		lower := strings.ToLower(name)
		switch {
		case strings.HasPrefix(lower, q):
			prefix = append(prefix, name)
		case strings.Contains(lower, q):
			contains = append(contains, name)
		}
	}
	out := append(prefix, contains...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
