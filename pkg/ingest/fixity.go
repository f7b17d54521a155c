// ABOUTME: Fixity stage computing payload checksums
// ABOUTME: Merges digests into raw file attribute sets, tolerating bad records

package ingest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/event"
)

// FixityStage walks the package payload and records MD5 and SHA-256
// digests for every file, merged into the per-file raw attribute sets.
// An unreadable file is a per-record anomaly: reported, not fatal.
type FixityStage struct{}

// NewFixityStage creates the fixity stage
func NewFixityStage() *FixityStage {
	return &FixityStage{}
}

// Name returns the stage name
func (f *FixityStage) Name() string { return "fixity" }

// Execute computes digests for every payload file
func (f *FixityStage) Execute(depositID string, st *State) error {
	if err := st.check(); err != nil {
		return err
	}
	if st.Package == nil {
		return ErrMissingPackage
	}

	files, err := st.Package.ListFiles()
	if err != nil {
		return fmt.Errorf("ingest: listing payload for fixity: %w", err)
	}

	anomalies := 0
	for _, path := range files {
		if path == "" {
			reportFail(depositID, st, depositID, "package listing contains an empty file entry")
			anomalies++
			continue
		}

		md5sum, sha256sum, size, err := digestFile(path)
		if err != nil {
			reportFail(depositID, st, path, fmt.Sprintf("fixity calculation failed: %v", err))
			anomalies++
			continue
		}

		set, ok := st.Attributes.Get(path)
		if !ok {
			set = attribute.NewSet(attribute.SetFile)
			st.Attributes.Update(path, set)
		}
		set.Add(
			attribute.Attribute{Name: attribute.AttrChecksumMD5, Type: attribute.TypePair, Value: md5sum},
			attribute.Attribute{Name: attribute.AttrChecksumSHA256, Type: attribute.TypePair, Value: sha256sum},
		)
		if _, ok := set.First(attribute.AttrSize); !ok {
			set.Add(attribute.Attribute{Name: attribute.AttrSize, Type: attribute.TypeLong, Value: strconv.FormatInt(size, 10)})
		}

		e := st.Events.New(event.FixityCalculated)
		e.Target = path
		e.Outcome = sha256sum
		e.Detail = "md5 and sha256 digests calculated"
		st.Events.Add(depositID, e)
	}

	if anomalies > 0 {
		reportFail(depositID, st, depositID,
			fmt.Sprintf("fixity completed with %d unreadable files", anomalies))
	}
	return nil
}

// digestFile computes MD5 and SHA-256 digests in one pass
func digestFile(path string) (string, string, int64, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", "", 0, err
	}
	defer fh.Close()

	m := md5.New()
	s := sha256.New()
	n, err := io.Copy(io.MultiWriter(m, s), fh)
	if err != nil {
		return "", "", 0, err
	}
	return hex.EncodeToString(m.Sum(nil)), hex.EncodeToString(s.Sum(nil)), n, nil
}
