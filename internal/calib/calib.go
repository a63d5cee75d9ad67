// Package calib persists camera calibration matrices. It has no relationship
// to the live capture pipeline; it exists for offline calibration work.
//
// The on-disk format is a zip archive with one named entry per matrix:
// camera_matrix (3x3), distortion_coeffs (vector) and, when extrinsic
// calibration has been performed, extrinsics. Each entry holds the gonum
// binary encoding of the matrix.
package calib

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// ErrFileFormat reports an unreadable archive or one missing required
// entries.
var ErrFileFormat = errors.New("invalid calibration archive")

const (
	entryCameraMatrix     = "camera_matrix"
	entryDistortionCoeffs = "distortion_coeffs"
	entryExtrinsics       = "extrinsics"
)

// Data bundles intrinsic and extrinsic calibration. CameraMatrix and
// DistortionCoeffs are always present; Extrinsics is nil until extrinsic
// calibration has been performed.
type Data struct {
	CameraMatrix     *mat.Dense
	DistortionCoeffs *mat.VecDense
	Extrinsics       *mat.Dense
}

// Load reads a calibration archive. Missing required entries or an
// unreadable archive fail with an error wrapping ErrFileFormat.
func Load(path string) (*Data, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}
	defer r.Close()

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}

	data := &Data{}

	camRaw, err := readEntry(entries, entryCameraMatrix)
	if err != nil {
		return nil, err
	}
	data.CameraMatrix = &mat.Dense{}
	if err := data.CameraMatrix.UnmarshalBinary(camRaw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileFormat, entryCameraMatrix, err)
	}

	distRaw, err := readEntry(entries, entryDistortionCoeffs)
	if err != nil {
		return nil, err
	}
	data.DistortionCoeffs = &mat.VecDense{}
	if err := data.DistortionCoeffs.UnmarshalBinary(distRaw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileFormat, entryDistortionCoeffs, err)
	}

	if f, ok := entries[entryExtrinsics]; ok {
		extRaw, err := readFile(f)
		if err != nil {
			return nil, err
		}
		data.Extrinsics = &mat.Dense{}
		if err := data.Extrinsics.UnmarshalBinary(extRaw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFileFormat, entryExtrinsics, err)
		}
	}

	return data, nil
}

// Save writes data to a calibration archive at path, creating or overwriting
// it. A nil Extrinsics simply omits that entry.
func Save(data *Data, path string) error {
	if data.CameraMatrix == nil || data.DistortionCoeffs == nil {
		return fmt.Errorf("%w: camera_matrix and distortion_coeffs are required", ErrFileFormat)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create calibration archive: %w", err)
	}

	w := zip.NewWriter(out)
	writeAll := func() error {
		if err := writeEntry(w, entryCameraMatrix, data.CameraMatrix); err != nil {
			return err
		}
		if err := writeEntry(w, entryDistortionCoeffs, data.DistortionCoeffs); err != nil {
			return err
		}
		if data.Extrinsics != nil {
			if err := writeEntry(w, entryExtrinsics, data.Extrinsics); err != nil {
				return err
			}
		}
		return w.Close()
	}

	if err := writeAll(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readEntry(entries map[string]*zip.File, name string) ([]byte, error) {
	f, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing required entry %q", ErrFileFormat, name)
	}
	return readFile(f)
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileFormat, f.Name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileFormat, f.Name, err)
	}
	return raw, nil
}

type binaryMatrix interface {
	MarshalBinary() ([]byte, error)
}

func writeEntry(w *zip.Writer, name string, m binaryMatrix) error {
	raw, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	ew, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if _, err := ew.Write(raw); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", name, err)
	}
	return nil
}
