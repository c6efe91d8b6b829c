package seqio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ReadClusterInfo maps cluster name to member sequence names, in file
// order. The input needs a header row with "cluster" and "seqname"
// columns; other columns are ignored.
func ReadClusterInfo(r io.Reader) (map[string][]string, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("cluster info file is empty")
	}
	if err != nil {
		return nil, err
	}

	clusterCol, seqnameCol := -1, -1
	for i, name := range header {
		switch name {
		case "cluster":
			clusterCol = i
		case "seqname":
			seqnameCol = i
		}
	}
	if clusterCol < 0 || seqnameCol < 0 {
		return nil, fmt.Errorf("cluster info header %v lacks cluster/seqname columns", header)
	}

	members := make(map[string][]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cluster := record[clusterCol]
		members[cluster] = append(members[cluster], record[seqnameCol])
	}

	return members, nil
}

// ReadDedupCounts parses deduplication info (headerless rows of kept name,
// original name, count) and sums counts per kept name.
func ReadDedupCounts(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	counts := make(map[string]float64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad dedup count for %q: %w", record[0], err)
		}
		counts[record[0]] += n
	}

	return counts, nil
}

// WriteRedupInfo writes the re-expansion mapping consumed by the placement
// de-duplication tool: one name,name,weight row per query sequence.
func WriteRedupInfo(w io.Writer, seqs []Sequence) error {
	writer := csv.NewWriter(w)
	for _, s := range seqs {
		weight := strconv.FormatFloat(s.Weight(), 'g', -1, 64)
		if err := writer.Write([]string{s.Name, s.Name, weight}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SeqInfoWriter streams per-sequence selection results as CSV rows of
// seqname, cluster, weight_prop. The header goes out with the first row.
type SeqInfoWriter struct {
	writer      *csv.Writer
	wroteHeader bool
}

func NewSeqInfoWriter(w io.Writer) *SeqInfoWriter {
	return &SeqInfoWriter{writer: csv.NewWriter(w)}
}

func (w *SeqInfoWriter) Write(s Sequence) error {
	if !w.wroteHeader {
		if err := w.writer.Write([]string{"seqname", "cluster", "weight_prop"}); err != nil {
			return err
		}
		w.wroteHeader = true
	}
	cluster := s.Annotations[AnnotationCluster]
	prop := s.Annotations[AnnotationWeightProp]
	return w.writer.Write([]string{s.Name, cluster, prop})
}

func (w *SeqInfoWriter) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}
