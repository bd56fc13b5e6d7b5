package container

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// createTestPackage builds an in-memory zip package holding the given entries.
func createTestPackage(entries map[string][]byte) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	ct, _ := w.Create("[Content_Types].xml")
	ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types/>`))

	for name, data := range entries {
		f, _ := w.Create(name)
		f.Write(data)
	}

	w.Close()
	return buf.Bytes()
}

// cfbNode is a storage (Data == nil) or a stream in a test compound file.
type cfbNode struct {
	Name     string
	Data     []byte
	Children []cfbNode
}

const (
	cfbSectorSize = 512
	cfbEndOfChain = 0xFFFFFFFE
	cfbFatSect    = 0xFFFFFFFD
	cfbFreeSect   = 0xFFFFFFFF
	cfbNoStream   = 0xFFFFFFFF
	cfbMinStream  = 4096
	cfbMiniSector = 64
)

type cfbDirEntry struct {
	name    string
	kind    byte
	right   uint32
	child   uint32
	start   uint32
	size    uint32
	payload []byte
}

// createTestCompound builds a minimal version 3 compound file. Sector 0
// holds the FAT, the directory follows, and stream data comes last. Streams
// are padded to the mini-stream cutoff so that only the regular FAT is used.
func createTestCompound(nodes ...cfbNode) []byte {
	return buildCompound(false, nodes)
}

// createMiniCompound is like createTestCompound but records each stream at
// its real size. Streams below the cutoff live in the mini stream, which is
// carried by the root entry and chained through a one-sector mini FAT.
func createMiniCompound(nodes ...cfbNode) []byte {
	return buildCompound(true, nodes)
}

func buildCompound(mini bool, nodes []cfbNode) []byte {
	dir := []cfbDirEntry{{name: "Root Entry", kind: 5, right: cfbNoStream, child: cfbNoStream, start: cfbEndOfChain}}

	var add func(siblings []cfbNode) uint32
	add = func(siblings []cfbNode) uint32 {
		if len(siblings) == 0 {
			return cfbNoStream
		}
		first := uint32(len(dir))
		prev := -1
		for _, n := range siblings {
			idx := len(dir)
			e := cfbDirEntry{name: n.Name, right: cfbNoStream, child: cfbNoStream, start: cfbEndOfChain}
			switch {
			case n.Data == nil:
				e.kind = 1
			case mini:
				e.kind = 2
				e.payload = n.Data
				e.size = uint32(len(n.Data))
			default:
				e.kind = 2
				e.payload = padStream(n.Data)
				e.size = uint32(len(e.payload))
			}
			dir = append(dir, e)
			if prev >= 0 {
				dir[prev].right = uint32(idx)
			}
			prev = idx
			if n.Data == nil {
				child := add(n.Children)
				dir[idx].child = child
			}
		}
		return first
	}
	dir[0].child = add(nodes)

	le := binary.LittleEndian
	dirSectors := (len(dir)*128 + cfbSectorSize - 1) / cfbSectorSize
	fat := make([]uint32, cfbSectorSize/4)
	for i := range fat {
		fat[i] = cfbFreeSect
	}
	fat[0] = cfbFatSect
	for i := 1; i <= dirSectors; i++ {
		fat[i] = uint32(i + 1)
	}
	fat[dirSectors] = cfbEndOfChain
	next := uint32(1 + dirSectors)

	// chain links count consecutive sectors from next and returns the first.
	chain := func(count uint32) uint32 {
		first := next
		for s := uint32(0); s < count; s++ {
			fat[next+s] = next + s + 1
		}
		fat[next+count-1] = cfbEndOfChain
		next += count
		return first
	}

	miniFATSector := uint32(cfbEndOfChain)
	var miniSectors, miniStream []byte
	if mini {
		miniFAT := make([]uint32, cfbSectorSize/4)
		for i := range miniFAT {
			miniFAT[i] = cfbFreeSect
		}
		var nextMini uint32
		for i := range dir {
			if dir[i].kind != 2 || len(dir[i].payload) >= cfbMinStream {
				continue
			}
			count := uint32((len(dir[i].payload) + cfbMiniSector - 1) / cfbMiniSector)
			if count == 0 {
				count = 1
			}
			dir[i].start = nextMini
			for s := uint32(0); s < count; s++ {
				miniFAT[nextMini+s] = nextMini + s + 1
			}
			miniFAT[nextMini+count-1] = cfbEndOfChain
			nextMini += count
			padded := make([]byte, count*cfbMiniSector)
			copy(padded, dir[i].payload)
			miniStream = append(miniStream, padded...)
			dir[i].payload = nil
		}
		if len(miniStream) > 0 {
			miniFATSector = chain(1)
			miniSectors = make([]byte, cfbSectorSize)
			for i, v := range miniFAT {
				le.PutUint32(miniSectors[i*4:], v)
			}
			container := make([]byte, (len(miniStream)+cfbSectorSize-1)/cfbSectorSize*cfbSectorSize)
			copy(container, miniStream)
			dir[0].start = chain(uint32(len(container) / cfbSectorSize))
			dir[0].size = uint32(len(miniStream))
			miniSectors = append(miniSectors, container...)
		}
	}

	var streams []byte
	for i := range dir {
		if dir[i].kind != 2 || dir[i].payload == nil {
			continue
		}
		payload := dir[i].payload
		if rem := len(payload) % cfbSectorSize; rem != 0 {
			payload = append(append([]byte{}, payload...), make([]byte, cfbSectorSize-rem)...)
		}
		dir[i].start = chain(uint32(len(payload) / cfbSectorSize))
		streams = append(streams, payload...)
	}

	out := make([]byte, cfbSectorSize)
	copy(out, oleSignature)
	le.PutUint16(out[24:], 0x003E)
	le.PutUint16(out[26:], 0x0003)
	le.PutUint16(out[28:], 0xFFFE)
	le.PutUint16(out[30:], 9)
	le.PutUint16(out[32:], 6)
	le.PutUint32(out[44:], 1)
	le.PutUint32(out[48:], 1)
	le.PutUint32(out[56:], cfbMinStream)
	le.PutUint32(out[60:], miniFATSector)
	if miniFATSector != cfbEndOfChain {
		le.PutUint32(out[64:], 1)
	}
	le.PutUint32(out[68:], cfbEndOfChain)
	le.PutUint32(out[76:], 0)
	for i := 1; i < 109; i++ {
		le.PutUint32(out[76+i*4:], cfbFreeSect)
	}

	fatSector := make([]byte, cfbSectorSize)
	for i, v := range fat {
		le.PutUint32(fatSector[i*4:], v)
	}
	out = append(out, fatSector...)

	dirBytes := make([]byte, dirSectors*cfbSectorSize)
	for i, e := range dir {
		b := dirBytes[i*128 : (i+1)*128]
		name := utf16.Encode([]rune(e.name))
		for j, r := range name {
			le.PutUint16(b[j*2:], r)
		}
		le.PutUint16(b[64:], uint16((len(name)+1)*2))
		b[66] = e.kind
		b[67] = 1
		le.PutUint32(b[68:], cfbNoStream)
		le.PutUint32(b[72:], e.right)
		le.PutUint32(b[76:], e.child)
		le.PutUint32(b[116:], e.start)
		le.PutUint32(b[120:], e.size)
	}
	for i := len(dir); i < dirSectors*4; i++ {
		b := dirBytes[i*128 : (i+1)*128]
		le.PutUint32(b[68:], cfbNoStream)
		le.PutUint32(b[72:], cfbNoStream)
		le.PutUint32(b[76:], cfbNoStream)
	}
	out = append(out, dirBytes...)
	out = append(out, miniSectors...)
	return append(out, streams...)
}

func padStream(data []byte) []byte {
	size := len(data)
	if size < cfbMinStream {
		size = cfbMinStream
	}
	if rem := size % cfbSectorSize; rem != 0 {
		size += cfbSectorSize - rem
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}
