package progress

import "io"

// Reader wraps an io.Reader and counts the bytes it delivers. After every
// read that returns data, the callback receives the new cumulative count.
// Reads that deliver no bytes, including the final EOF, do not trigger the
// callback.
//
// A Reader is not safe for concurrent use; wrap each stream with its own.
type Reader struct {
	reader   io.Reader
	callback func(cumulative int64)
	count    int64
}

// NewReader creates a counting reader around r. The callback may be nil,
// in which case the reader only counts.
func NewReader(r io.Reader, callback func(cumulative int64)) *Reader {
	return &Reader{
		reader:   r,
		callback: callback,
	}
}

// Read implements io.Reader. Data returned alongside an error, including
// io.EOF, is still counted and reported.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.count += int64(n)
		if r.callback != nil {
			r.callback(r.count)
		}
	}
	return n, err
}

// Count returns the cumulative number of bytes delivered so far.
func (r *Reader) Count() int64 {
	return r.count
}
