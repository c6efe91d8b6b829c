package seqio

import (
	"fmt"
	"io"
	"os"

	"github.com/TuftsBCB/io/fasta"
	"github.com/TuftsBCB/seq"
)

// ReadFasta parses every record from r. Sequences are taken as-is so that
// gapped alignment output ('-' and '.' columns) reads back like unaligned
// input.
func ReadFasta(r io.Reader) ([]Sequence, error) {
	reader := fasta.NewReader(r)
	reader.TrustSequences = true

	var seqs []Sequence
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FASTA record: %w", err)
		}

		name, desc := splitHeader(record.Name)
		seqs = append(seqs, Sequence{
			Name:        name,
			Description: desc,
			Residues:    string(record.Bytes()),
		})
	}

	return seqs, nil
}

func ReadFastaFile(path string) ([]Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seqs, err := ReadFasta(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seqs, nil
}

func WriteFasta(w io.Writer, seqs []Sequence) error {
	writer := fasta.NewWriter(w)
	for _, s := range seqs {
		writer.Write(seq.NewSequenceString(s.header(), s.Residues))
	}
	return writer.Flush()
}

// WriteFastaFile writes seqs to path, truncating any existing file.
func WriteFastaFile(path string, seqs []Sequence) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteFasta(f, seqs); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
