package vecindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Vector file layout: 4-byte magic, uint16 version, uint16 reserved,
// uint32 dimension, uint32 count, then count*dimension little-endian
// float32 values.
var vectorFileMagic = [4]byte{'S', 'V', 'I', 'X'}

const vectorFileVersion = 1

// persist writes both index files. Each file is written to a temporary
// sibling and renamed into place, vectors first, then the map. The pair is
// one logical commit; a crash between the two renames leaves one unmapped
// vector on disk, which the next Open rejects as corrupt rather than
// silently repairing. Callers must hold the write lock.
func (x *Index) persist() error {
	vecData, err := x.encodeVectors()
	if err != nil {
		return fmt.Errorf("%w: encode vectors: %v", ErrPersistence, err)
	}
	mapData, err := encodeSlotMap(x.slots)
	if err != nil {
		return fmt.Errorf("%w: encode slot map: %v", ErrPersistence, err)
	}

	if err := writeFileAtomic(x.vectorPath, vecData); err != nil {
		return fmt.Errorf("%w: write vector file: %v", ErrPersistence, err)
	}
	if err := writeFileAtomic(x.mapPath, mapData); err != nil {
		return fmt.Errorf("%w: write slot map file: %v", ErrPersistence, err)
	}
	return nil
}

// load reads both index files and verifies they agree.
func (x *Index) load() error {
	vecData, err := os.ReadFile(x.vectorPath)
	if err != nil {
		return fmt.Errorf("%w: read vector file: %v", ErrCorruptIndex, err)
	}
	vectors, dim, err := decodeVectors(vecData)
	if err != nil {
		return err
	}

	mapData, err := os.ReadFile(x.mapPath)
	if err != nil {
		return fmt.Errorf("%w: read slot map file: %v", ErrCorruptIndex, err)
	}
	slots, err := decodeSlotMap(mapData)
	if err != nil {
		return err
	}

	if len(vectors) != len(slots) {
		return fmt.Errorf("%w: vector file has %d entries, slot map has %d", ErrCorruptIndex, len(vectors), len(slots))
	}
	if len(vectors) > 0 && dim != x.dim {
		return fmt.Errorf("%w: index file dimension %d, embedding model dimension %d", ErrCorruptIndex, dim, x.dim)
	}

	x.vectors = vectors
	x.slots = slots
	return nil
}

func (x *Index) encodeVectors() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(vectorFileMagic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint16(vectorFileVersion)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(0)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(x.dim)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(x.vectors))); err != nil {
		return nil, err
	}
	for _, vec := range x.vectors {
		for _, v := range vec {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(data []byte) ([][]float32, int, error) {
	const headerSize = 16
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("%w: vector file truncated", ErrCorruptIndex)
	}
	if !bytes.Equal(data[:4], vectorFileMagic[:]) {
		return nil, 0, fmt.Errorf("%w: bad vector file magic", ErrCorruptIndex)
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != vectorFileVersion {
		return nil, 0, fmt.Errorf("%w: unsupported vector file version %d", ErrCorruptIndex, version)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	count := int(binary.LittleEndian.Uint32(data[12:16]))

	want := headerSize + count*dim*4
	if len(data) != want {
		return nil, 0, fmt.Errorf("%w: vector file is %d bytes, expected %d", ErrCorruptIndex, len(data), want)
	}

	vectors := make([][]float32, count)
	offset := headerSize
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			bits := binary.LittleEndian.Uint32(data[offset : offset+4])
			vec[j] = math.Float32frombits(bits)
			offset += 4
		}
		vectors[i] = vec
	}
	return vectors, dim, nil
}

// The slot map is persisted as a JSON object with decimal-string slot keys.
func encodeSlotMap(slots map[int]string) ([]byte, error) {
	out := make(map[string]string, len(slots))
	for slot, id := range slots {
		out[strconv.Itoa(slot)] = id
	}
	return json.Marshal(out)
}

func decodeSlotMap(data []byte) (map[int]string, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse slot map: %v", ErrCorruptIndex, err)
	}
	slots := make(map[int]string, len(raw))
	for key, id := range raw {
		slot, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: bad slot key %q", ErrCorruptIndex, key)
		}
		slots[slot] = id
	}
	return slots, nil
}

// writeFileAtomic writes data to a temporary sibling of path, syncs it, and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
