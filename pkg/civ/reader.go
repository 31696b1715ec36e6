// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package civ

import "io"

// Reader turns a byte source into reads suitable for Decode.
//
// A read that fills the buffer may be the head of a longer burst, so it is
// joined with the reads that follow it until one comes back short. The whole
// burst is then reported as a single oversized read and none of it reaches
// the decoder.
type Reader struct {
	src     io.Reader
	buf     []byte
	pending int
}

// NewReader creates a Reader over src with a buffer of size bytes
// (MaxReadSize when size <= 0)
func NewReader(src io.Reader, size int) *Reader {
	if size <= 0 {
		size = MaxReadSize
	}
	return &Reader{src: src, buf: make([]byte, size)}
}

// Next performs one logical read. It returns the bytes read and their count;
// for an oversized read chunk is nil and n is the total length of the burst.
// chunk is only valid until the next call. A short read with no error and
// n == 0 means the source timed out with nothing to deliver.
func (r *Reader) Next() (chunk []byte, n int, err error) {
	for {
		k, err := r.src.Read(r.buf)
		if k == len(r.buf) {
			r.pending += k
			if err == nil {
				continue
			}
			k = 0
		}
		if r.pending > 0 {
			total := r.pending + k
			r.pending = 0
			return nil, total, err
		}
		return r.buf[:k], k, err
	}
}
