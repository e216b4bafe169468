package sde

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"shortcircuit/internal/logger"

	_ "modernc.org/sqlite"
)

// ImportStats reports what ImportSQLite wrote.
type ImportStats struct {
	Jumps   int
	Systems int
}

// ImportSQLite converts an EVE static data export in SQLite form (for example
// universeDataDx.db) into the jump and system tables read by Load. The
// wormhole type table is not part of the export and must be supplied
// separately.
func ImportSQLite(ctx context.Context, dbPath, outDir string) (*ImportStats, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("sde db: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sde db: %w", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sde db: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	logger.Info("SDE", "Exporting stargate jumps...")
	if stats.Jumps, err = exportJumps(ctx, sqlDB, filepath.Join(outDir, JumpsFile)); err != nil {
		return nil, fmt.Errorf("export jumps: %w", err)
	}
	logger.Info("SDE", "Exporting solar systems...")
	if stats.Systems, err = exportSystems(ctx, sqlDB, filepath.Join(outDir, SystemsFile)); err != nil {
		return nil, fmt.Errorf("export systems: %w", err)
	}
	logger.Success("SDE", fmt.Sprintf("Imported %d systems and %d jumps into %s", stats.Systems, stats.Jumps, outDir))
	return stats, nil
}

func exportJumps(ctx context.Context, db *sql.DB, path string) (int, error) {
	rows, err := db.QueryContext(ctx, "SELECT fromSolarSystemID, toSolarSystemID FROM mapSolarSystemJumps")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	return writeLines(path, func(w *bufio.Writer) (int, error) {
		n := 0
		for rows.Next() {
			var from, to int64
			if err := rows.Scan(&from, &to); err != nil {
				return n, err
			}
			fmt.Fprintf(w, "%d;%d\n", from, to)
			n++
		}
		return n, rows.Err()
	})
}

type systemRow struct {
	regionID int64
	systemID int64
	name     string
	security float64
}

func exportSystems(ctx context.Context, db *sql.DB, path string) (int, error) {
	// Collect first: the class lookups below need the connection while the
	// cursor would otherwise still be open.
	rows, err := db.QueryContext(ctx, "SELECT regionID, solarSystemID, solarSystemName, security FROM mapSolarSystems")
	if err != nil {
		return 0, err
	}
	var systems []systemRow
	for rows.Next() {
		var r systemRow
		if err := rows.Scan(&r.regionID, &r.systemID, &r.name, &r.security); err != nil {
			rows.Close()
			return 0, err
		}
		systems = append(systems, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	classStmt, err := db.PrepareContext(ctx, "SELECT wormholeClassID FROM mapLocationWormholeClasses WHERE locationID = ?")
	if err != nil {
		return 0, err
	}
	defer classStmt.Close()

	lookup := func(locationID int64) (int64, bool, error) {
		var class int64
		err := classStmt.QueryRowContext(ctx, locationID).Scan(&class)
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		return class, true, nil
	}

	return writeLines(path, func(w *bufio.Writer) (int, error) {
		for _, r := range systems {
			// Region class wins over a per-system override.
			classID, found, err := lookup(r.regionID)
			if err != nil {
				return 0, err
			}
			if !found {
				if classID, found, err = lookup(r.systemID); err != nil {
					return 0, err
				}
			}
			class := ClassUnknown
			if found {
				class = classFromSDE(classID, r.security)
			}
			fmt.Fprintf(w, "%d;%s;%s;%s;%d\n", r.systemID, r.name, class, FormatSecurity(r.security), r.regionID)
		}
		return len(systems), nil
	})
}

// classFromSDE maps an SDE wormholeClassID to a Class. IDs that are not
// wormhole classes are k-space and split by security.
func classFromSDE(classID int64, security float64) Class {
	switch classID {
	case 1, 2, 3, 4, 5, 6, 12, 13, 14, 15, 16, 17, 18:
		return ParseClass("C" + strconv.FormatInt(classID, 10))
	}
	switch {
	case security >= 0.45:
		return ClassHS
	case security >= 0:
		return ClassLS
	}
	return ClassNS
}

// FormatSecurity renders a security status the way the in-game map shows it:
// two decimals when negative, 0.1 for anything in [0, 0.1], one decimal otherwise.
func FormatSecurity(sec float64) string {
	switch {
	case sec < 0:
		return strconv.FormatFloat(sec, 'f', 2, 64)
	case sec <= 0.1:
		return "0.1"
	}
	return strconv.FormatFloat(sec, 'f', 1, 64)
}

func writeLines(path string, fn func(*bufio.Writer) (int, error)) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(f)
	n, err := fn(w)
	if err != nil {
		f.Close()
		return n, err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}
