// Package validation implements upload composition checks and the
// declarative field validators for the External Interface Layer (§6),
// using github.com/go-playground/validator/v10 for request-shape checks
// ahead of domain-specific rules.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxUploadFiles is the primary file plus at most 9 companions (§6).
const maxUploadFiles = 10

// primaryDataExtensions are the extensions that count toward the "at most
// one primary data file unless a companion set" rule.
var primaryDataExtensions = map[string]bool{
	".bin": true, ".dat": true, ".continuous": true, ".h5": true, ".nwb": true,
}

// allowedExtensions is the upload extension allow-list: primary data
// extensions plus the sidecar/metadata formats acquisition systems ship
// alongside them.
var allowedExtensions = map[string]bool{
	".bin": true, ".dat": true, ".continuous": true, ".h5": true, ".nwb": true,
	".meta": true, ".oebin": true, ".xml": true, ".json": true, ".txt": true,
}

// UploadFile describes one file in an upload request, independent of how
// the transport layer received it (multipart, local path, etc).
type UploadFile struct {
	Name string `validate:"required"`
	Size int64  `validate:"min=1"`
}

// UploadRequest is the declarative shape of upload() (§6): a required
// primary file, at most 9 additional files, each non-empty. Struct-tag
// validation runs first; CheckComposition then applies the domain-specific
// companion-set rule that validator tags can't express.
type UploadRequest struct {
	Primary     UploadFile   `validate:"required"`
	Additional  []UploadFile `validate:"max=9,dive"`
	MaxUploadMB int64        `validate:"-"`
}

var validate = validator.New()

// Validate runs the struct-tag checks (field presence, additional-file
// count, non-empty sizes).
func (r UploadRequest) Validate() error {
	return validate.Struct(r)
}

func ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// CheckComposition applies the rules struct tags can't express: extension
// allow-list, the 10-file ceiling, the per-file size ceiling, and the
// primary-data companion-set exception (§6: "reject when (a) total files >
// 10, (b) more than one primary data file unless a recognized companion
// set is detected, (c) disallowed extension, (d) size constraints
// violated").
func CheckComposition(files []UploadFile, maxUploadBytes int64) error {
	if len(files) == 0 {
		return fmt.Errorf("upload: no files provided")
	}
	if len(files) > maxUploadFiles {
		return fmt.Errorf("upload: %d files exceeds the %d-file ceiling", len(files), maxUploadFiles)
	}

	var primaries []string
	for _, f := range files {
		e := ext(f.Name)
		if !allowedExtensions[e] {
			return fmt.Errorf("upload: disallowed file extension %q on %s", e, f.Name)
		}
		if f.Size <= 0 {
			return fmt.Errorf("upload: %s is empty", f.Name)
		}
		if f.Size > maxUploadBytes {
			return fmt.Errorf("upload: %s (%d bytes) exceeds the size ceiling", f.Name, f.Size)
		}
		if primaryDataExtensions[e] {
			primaries = append(primaries, f.Name)
		}
	}

	if len(primaries) <= 1 {
		return nil
	}
	if isCompanionSet(primaries) {
		return nil
	}
	return fmt.Errorf("upload: %d primary data files without a recognized companion set: %s",
		len(primaries), strings.Join(primaries, ", "))
}

// isCompanionSet recognizes the two multi-file primary-data layouts named
// in §6: SpikeGLX's *.ap.bin + *.lf.bin pair, and an Open Ephys recording
// split across multiple .continuous files.
func isCompanionSet(primaries []string) bool {
	allContinuous := true
	for _, p := range primaries {
		if ext(p) != ".continuous" {
			allContinuous = false
			break
		}
	}
	if allContinuous {
		return true
	}

	var hasAP, hasLF bool
	for _, p := range primaries {
		lower := strings.ToLower(p)
		switch {
		case strings.HasSuffix(lower, ".ap.bin"):
			hasAP = true
		case strings.HasSuffix(lower, ".lf.bin"):
			hasLF = true
		}
	}
	return hasAP && hasLF && len(primaries) == 2
}
