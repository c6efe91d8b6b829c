package search

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nhoffman/deenurp/pkg/db"
)

// UC-format field positions.
const (
	ucType = iota
	ucClusterNumber
	ucSize
	ucPctID
	ucStrand
	ucQueryStart
	ucSeedStart
	ucAlignment
	ucQueryLabel
	ucTargetLabel
	ucFieldCount
)

// ParseUC extracts hit records ("H" rows) from UC-format search output,
// numbering each query's hits in report order. Labels are truncated at the
// first whitespace to match stored sequence names.
func ParseUC(r io.Reader) ([]db.Hit, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var hits []db.Hit
	hitIdx := make(map[string]int)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if fields[ucType] != "H" {
			continue
		}
		if len(fields) < ucFieldCount {
			return nil, fmt.Errorf("malformed UC hit record: %q", line)
		}

		pctID, err := strconv.ParseFloat(fields[ucPctID], 64)
		if err != nil {
			return nil, fmt.Errorf("bad pct_id in UC record %q: %w", line, err)
		}

		query := firstToken(fields[ucQueryLabel])
		target := firstToken(fields[ucTargetLabel])

		hits = append(hits, db.Hit{
			QueryName: query,
			RefName:   target,
			HitIdx:    hitIdx[query],
			PctID:     pctID,
		})
		hitIdx[query]++
	}

	return hits, scanner.Err()
}

func firstToken(label string) string {
	if i := strings.IndexAny(label, " \t"); i >= 0 {
		return label[:i]
	}
	return label
}
