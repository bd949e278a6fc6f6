package voice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

var errNotWAV = errors.New("voice: not a RIFF/WAVE payload")

// wavInfo reads the fmt and data chunks of a RIFF/WAVE payload and returns
// the sample rate and the playback duration.
func wavInfo(b []byte) (int, time.Duration, error) {
	if len(b) < 12 || !bytes.Equal(b[0:4], []byte("RIFF")) || !bytes.Equal(b[8:12], []byte("WAVE")) {
		return 0, 0, errNotWAV
	}
	var (
		sampleRate uint32
		byteRate   uint32
		dataLen    uint32
		haveFmt    bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+16 > len(b) {
				return 0, 0, errNotWAV
			}
			sampleRate = binary.LittleEndian.Uint32(b[body+4 : body+8])
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
			haveFmt = true
		case "data":
			dataLen = size
			if rest := uint32(len(b) - body); dataLen > rest {
				dataLen = rest
			}
		}
		if id == "data" {
			break
		}
		off = body + int(size) + int(size&1)
	}
	if !haveFmt || byteRate == 0 {
		return 0, 0, errNotWAV
	}
	d := time.Duration(float64(dataLen) / float64(byteRate) * float64(time.Second))
	return int(sampleRate), d, nil
}
