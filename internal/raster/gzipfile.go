package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// countingReader wraps a forward-only byte stream (the decompressed TIFF
// contents) and tracks the absolute byte offset consumed so far. TIFF
// directory entries and strip data are located by absolute offset; since
// the underlying stream can only move forward (it sits on top of a gzip
// decompressor), discardTo is the only form of "seek" available.
type countingReader struct {
	r   io.Reader
	pos uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += uint64(n)
	return n, err
}

// discardTo advances the stream to the given absolute offset by reading
// and discarding bytes. Returns ErrWindowOutOfBounds-wrapped error if the
// target lies behind the current position — the one seek direction this
// stream cannot support.
func (c *countingReader) discardTo(offset uint64) error {
	if offset < c.pos {
		return fmt.Errorf("%w: cannot seek backward (at %d, wanted %d)", ErrWindowOutOfBounds, c.pos, offset)
	}
	if offset == c.pos {
		return nil
	}
	n, err := io.CopyN(io.Discard, c, int64(offset-c.pos))
	if err != nil {
		return fmt.Errorf("discarding %d bytes: %w", n, err)
	}
	return nil
}

// openDecompressed opens path and, if it has a .gz extension, wraps it in
// a streaming gzip decompressor. The returned closer releases both the
// decompressor and the underlying file.
func openDecompressed(path string) (*countingReader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	buffered := bufio.NewReaderSize(f, 1<<20)

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return &countingReader{r: buffered}, f, nil
	}

	gz, err := gzip.NewReader(buffered)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: opening gzip stream: %v", ErrUnsupportedFormat, err)
	}

	return &countingReader{r: gz}, multiCloser{gz, f}, nil
}

// multiCloser closes a gzip reader and its backing file together.
type multiCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (m multiCloser) Close() error {
	gzErr := m.gz.Close()
	fErr := m.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}
