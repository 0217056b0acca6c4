// chunkimport validates plain JSON chunk files and publishes them as a
// compressed chunk directory, the world database, or both.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/config"
	"github.com/tim-ings/mmo/internal/persist"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/terrain"
)

func printUsage() {
	fmt.Println("Usage: chunkimport <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  files  Write <src>/*.json -> <outdir>/<id>.json.zst")
	fmt.Println("  db     Upsert <src>/*.json into the world database")
	fmt.Println("  all    Both of the above")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	srcDir := fs.String("src", filepath.Join("data", "chunks"), "JSON chunk source directory")
	outDir := fs.String("outdir", filepath.Join("assets", "chunks"), "compressed chunk output directory")
	dsn := fs.String("dsn", "", "world database DSN (defaults to the client config)")
	_ = fs.Parse(os.Args[2:])

	var toFiles, toDB bool
	switch cmd {
	case "files":
		toFiles = true
	case "db":
		toDB = true
	case "all":
		toFiles, toDB = true, true
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	defs, err := loadDefs(*srcDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Validated %d chunks from %s\n", len(defs), *srcDir)

	if toFiles {
		if err := writeFiles(*outDir, defs); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR [files]: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d chunk files to %s\n", len(defs), *outDir)
	}
	if toDB {
		if err := upsert(*dsn, defs); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR [db]: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Upserted %d chunks\n", len(defs))
	}
	fmt.Println("Done!")
}

// loadDefs reads and schema-validates every *.json file in dir, sorted by
// chunk id. Duplicate ids or grid cells are rejected.
func loadDefs(dir string) ([]*protocol.ChunkDef, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .json chunk files in %s", dir)
	}

	defs := make([]*protocol.ChunkDef, 0, len(paths))
	byID := make(map[int]string, len(paths))
	byGrid := make(map[[2]int]string, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		def, err := terrain.DecodeDef(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if prev, ok := byID[def.ID]; ok {
			return nil, fmt.Errorf("%s: chunk id %d already defined in %s", p, def.ID, prev)
		}
		cell := [2]int{def.X, def.Y}
		if prev, ok := byGrid[cell]; ok {
			return nil, fmt.Errorf("%s: grid cell %d,%d already defined in %s", p, def.X, def.Y, prev)
		}
		byID[def.ID] = p
		byGrid[cell] = p
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func writeFiles(outDir string, defs []*protocol.ChunkDef) error {
	for _, def := range defs {
		if _, err := terrain.WriteDef(outDir, def); err != nil {
			return err
		}
	}
	return nil
}

func upsert(dsn string, defs []*protocol.ChunkDef) error {
	cfg, _, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(dsn) != "" {
		cfg.Database.DSN = dsn
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := persist.RunMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	fmt.Printf("World database at schema version %d\n", version)
	return persist.NewChunkRepo(db).SaveBatch(ctx, defs)
}
