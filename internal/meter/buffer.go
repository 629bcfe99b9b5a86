package meter

// Source is the opaque multichannel sample container MeasureBlock reads
// from. Any audio buffer type that can expose its channels as float64
// slices satisfies it.
type Source interface {
	NumChannels() int

	// Channel returns the samples of channel ch for the current block.
	// The meter only reads the slice during the MeasureBlock call.
	Channel(ch int) []float64
}

// Buffer is a plain multichannel sample buffer, one contiguous slice per
// channel. It satisfies Source and is reusable across blocks, so a
// producer can fill it in place without allocating per block.
type Buffer struct {
	data [][]float64
}

// NewBuffer returns a buffer with the given channel and sample counts.
func NewBuffer(numChannels, numSamples int) *Buffer {
	data := make([][]float64, numChannels)
	for i := range data {
		data[i] = make([]float64, numSamples)
	}
	return &Buffer{data: data}
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.data)
}

// NumSamples returns the per-channel block length.
func (b *Buffer) NumSamples() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// Channel returns the sample slice for channel ch, writable in place.
func (b *Buffer) Channel(ch int) []float64 {
	return b.data[ch]
}
