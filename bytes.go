package meadow

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

func float32Bytes(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func uint32Bytes(values []uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

// uniformBytes serialises a fixed-size uniform struct in declaration order.
// Structs must already be laid out with WGSL alignment in mind.
func uniformBytes(v any) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(fmt.Errorf("failed to write uniform %T: %w", v, err))
	}
	return buf.Bytes()
}
