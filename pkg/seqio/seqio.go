// Sequence records and the flat-file formats they travel in.

package seqio

import (
	"strconv"
	"strings"
)

// Annotation keys attached to sequences during database population and
// reference selection.
const (
	AnnotationWeight     = "weight"
	AnnotationCluster    = "cluster_name"
	AnnotationWeightProp = "weight_prop"
)

// Sequence is a named residue string plus free-form annotations. Name is
// the first whitespace-delimited token of the FASTA header; Description is
// the remainder.
type Sequence struct {
	Name        string
	Description string
	Residues    string
	Annotations map[string]string
}

func New(name, residues string) Sequence {
	return Sequence{Name: name, Residues: residues}
}

// SetAnnotation attaches key=val, allocating the map on first use.
func (s *Sequence) SetAnnotation(key, val string) {
	if s.Annotations == nil {
		s.Annotations = make(map[string]string)
	}
	s.Annotations[key] = val
}

func (s Sequence) Annotation(key string) (string, bool) {
	val, ok := s.Annotations[key]
	return val, ok
}

// Weight returns the deduplication multiplicity, defaulting to 1 when the
// annotation is absent or unparseable.
func (s Sequence) Weight() float64 {
	val, ok := s.Annotations[AnnotationWeight]
	if !ok {
		return 1
	}
	w, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 1
	}
	return w
}

func (s *Sequence) SetWeight(w float64) {
	s.SetAnnotation(AnnotationWeight, strconv.FormatFloat(w, 'g', -1, 64))
}

// Len reports the residue count.
func (s Sequence) Len() int {
	return len(s.Residues)
}

// header reconstructs the FASTA header line content.
func (s Sequence) header() string {
	if s.Description == "" {
		return s.Name
	}
	return s.Name + " " + s.Description
}

// splitHeader separates a FASTA header into name and description.
func splitHeader(header string) (string, string) {
	header = strings.TrimSpace(header)
	if i := strings.IndexAny(header, " \t"); i >= 0 {
		return header[:i], strings.TrimSpace(header[i+1:])
	}
	return header, ""
}

// Names collects sequence names in input order.
func Names(seqs []Sequence) []string {
	names := make([]string, len(seqs))
	for i, s := range seqs {
		names[i] = s.Name
	}
	return names
}
