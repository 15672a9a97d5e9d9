package raster

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// PGMExtensions are file extensions read as plain PGM.
var PGMExtensions = map[string]bool{".pgm": true}

// DICOMExtensions are file extensions read as DICOM.
var DICOMExtensions = map[string]bool{".dcm": true, ".dicom": true}

// ExcludedDirs are directory names skipped while scanning.
var ExcludedDirs = map[string]bool{
	".git":        true,
	"vendor":      true,
	"__pycache__": true,
	".venv":       true,
}

// FindImages lists the PGM and DICOM images under dir in lexical order.
// Files without a known extension are accepted when they carry the DICOM
// magic bytes.
func FindImages(dir string, recursive bool) ([]string, error) {
	var files []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() {
			if ExcludedDirs[info.Name()] {
				return filepath.SkipDir
			}
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if PGMExtensions[ext] || DICOMExtensions[ext] || (ext == "" && hasDICOMMagic(path)) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.Walk(dir, walkFn); err != nil {
		return nil, errors.Wrapf(err, "scan %s", dir)
	}

	sort.Strings(files)
	return files, nil
}

// Load reads the image at path, choosing the format by extension.
func Load(path string) (*Raster, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case PGMExtensions[ext]:
		return ReadPGMFile(path)
	case DICOMExtensions[ext], ext == "" && hasDICOMMagic(path):
		return ReadDICOM(path)
	default:
		return ReadPGMFile(path)
	}
}

// hasDICOMMagic checks for "DICM" at byte offset 128.
func hasDICOMMagic(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	header := make([]byte, 132)
	if _, err := io.ReadFull(file, header); err != nil {
		return false
	}
	return string(header[128:132]) == "DICM"
}
