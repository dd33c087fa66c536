package usecases

import "context"

// sampleStride is the number of pages skipped between consecutive requests
// on the first pass over a result set.
const sampleStride = 5

// NextSampleOffset returns the offset of the page to request after a page at
// offset returned got items. The first pass jumps sampleStride pages at a
// time so early samples are spread over the whole result set. Each later pass
// starts one page further. Starting at zero every page is visited once.
func NextSampleOffset(offset, limit, got int) (next int, done bool) {
	stride := limit * sampleStride
	if got == limit {
		return offset + stride, false
	}
	if offset >= stride && offset%stride != limit*(sampleStride-1) {
		return offset%stride + limit, false
	}
	return 0, true
}

// sampleAll walks a result set with NextSampleOffset, handing every page to
// fetch. It stops when the walk completes, fetch fails or ctx ends.
func sampleAll(ctx context.Context, limit int, fetch func(ctx context.Context, offset int) (int, error)) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		got, err := fetch(ctx, offset)
		if err != nil {
			return err
		}
		next, done := NextSampleOffset(offset, limit, got)
		if done {
			return nil
		}
		offset = next
	}
}
