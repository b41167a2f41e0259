package matrixfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const tempPattern = "ripser-matrix-*.txt"

// Write validates m and serializes it to a new uniquely named file in dir (the
// OS temp directory when dir is empty). The returned path must be passed to
// Release. On failure no file is left behind.
func Write(dir string, m Matrix) (string, error) {
	if err := Validate(m); err != nil {
		return "", err
	}

	file, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("create matrix file: %w", err)
	}
	path := file.Name()

	if err := Encode(file, m); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write matrix file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close matrix file %s: %w", path, err)
	}
	return path, nil
}

// Encode writes m row by row. Values use the shortest decimal form that
// round-trips exactly.
func Encode(w io.Writer, m Matrix) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for _, row := range m {
		for j, v := range row {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Release deletes a file produced by Write. Releasing a path that no longer
// exists is not an error.
func Release(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove matrix file: %w", err)
	}
	return nil
}
