package ledger

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/model"
)

// Read decodes a ledger from CSV. The schema is additive: columns missing
// from the header decode to zero values, so a pristine export and a
// partially processed output both load into the same record shape. Columns
// the schema does not know are reported once and dropped.
func Read(r io.Reader) (*Ledger, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: read header")
	}

	var tracks []model.Track
	warned := false
	for {
		var t model.Track
		if err := dec.Decode(&t); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "ledger: decode row %d", len(tracks)+1)
		}
		if !warned {
			if unused := dec.Unused(); len(unused) > 0 {
				header := dec.Header()
				names := make([]string, 0, len(unused))
				for _, i := range unused {
					names = append(names, header[i])
				}
				zap.L().Warn("ledger: ignoring unknown columns", zap.Strings("columns", names))
			}
			warned = true
		}
		tracks = append(tracks, t)
	}

	return New(tracks)
}

// Write encodes the full ledger as CSV. The header row is always
// present, even for an empty ledger, so the output stays readable.
func Write(w io.Writer, l *Ledger) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(l.tracks) == 0 {
		if err := enc.EncodeHeader(model.Track{}); err != nil {
			return eris.Wrap(err, "ledger: encode header")
		}
	}
	for i := range l.tracks {
		if err := enc.Encode(l.tracks[i]); err != nil {
			return eris.Wrapf(err, "ledger: encode row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "ledger: flush")
	}
	return nil
}

// ReadFile decodes a ledger from the CSV at path.
func ReadFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", path)
	}
	defer f.Close()

	l, err := Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: load %s", path)
	}
	return l, nil
}

// Load reads the ledger for a pass: the primary path when a previous run
// left partial results there, otherwise the fallback (the pristine export).
// This resume-from-output-if-present rule is the only resumption mechanism.
// The returned path is the file that was actually read.
func Load(primary, fallback string) (*Ledger, string, error) {
	path := primary
	if _, err := os.Stat(primary); err != nil {
		if !os.IsNotExist(err) {
			return nil, "", eris.Wrapf(err, "ledger: stat %s", primary)
		}
		path = fallback
	}

	l, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return l, path, nil
}
