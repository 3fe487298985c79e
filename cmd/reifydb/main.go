// Command reifydb is a minimal interactive shell over pkg/reifydb,
// grounded on the teacher's cmd/repl read-statement-print-result loop
// (internal/storage's database/sql driver replaced here with the
// module's own Database/Session façade since this engine has no SQL
// driver to register).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/pkg/reifydb"
)

var flagColdPath = flag.String("cold", "", "path to a SQLite cold-tier file (empty = hot-tier only)")

func main() {
	flag.Parse()

	db, err := reifydb.Open(reifydb.Config{ColdTierPath: *flagColdPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open error:", err)
		os.Exit(1)
	}
	defer db.Close()

	runREPL(db)
}

func runREPL(db *reifydb.Database) {
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 1024), 4*1024*1024)

	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}
	if interactive {
		fmt.Println("reifydb shell. End a pipeline with ';'. '.quit' to exit.")
	}

	ctx := context.Background()
	var buf strings.Builder
	for {
		if buf.Len() == 0 && interactive {
			fmt.Print("rql> ")
		}
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if buf.Len() == 0 && line == ".quit" {
			return
		}
		if line == "" {
			continue
		}
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			continue
		}

		src := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		s := db.Begin()
		results, err := s.Execute(ctx, src)
		if err != nil {
			fmt.Println("ERR:", err)
			s.Rollback()
			continue
		}
		if _, err := s.Commit(); err != nil {
			fmt.Println("ERR:", err)
			continue
		}
		for _, cols := range results {
			printColumns(cols)
		}
	}
}

func printColumns(cols *columnar.Columns) {
	if cols == nil || len(cols.Cols) == 0 {
		fmt.Println("(ok)")
		return
	}
	names := make([]string, len(cols.Cols))
	for i, c := range cols.Cols {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, "\t"))
	for r := 0; r < cols.NumRows(); r++ {
		cells := make([]string, len(cols.Cols))
		for i, c := range cols.Cols {
			cells[i] = c.Values[r].String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}
