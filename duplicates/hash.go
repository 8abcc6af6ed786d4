package duplicates

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

const partialHashSize = 4 * 1024

// hashFile returns the hex xxhash of the first limit bytes of a file, or of the
// whole file if limit is not positive.
func hashFile(path string, limit int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.WithMessage(err, "failed to open file")
	}
	defer file.Close()

	var reader io.Reader = file
	if limit > 0 {
		reader = io.LimitReader(file, limit)
	}

	digest := xxhash.New()
	if _, err = io.Copy(digest, reader); err != nil {
		return "", errors.WithMessagef(err, "failed to read file %v", path)
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}
