package search

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

const cramMagic = 0x4d415243

type cramFileDefinition struct {
	Magic        uint32
	MajorVersion uint8
	MinorVersion uint8
	ID           [20]byte
}

type cramBlockHeader struct {
	Method      byte
	ContentType byte
	ContentID   int32
	Length      int32
	RawLength   int32
}

// CRAMResolver reads reference names out of a CRAM file's embedded SAM
// text header, the way CRAI carries no name table of its own.
type CRAMResolver struct {
	Open func() (io.ReadCloser, error)
}

// ResolveReference implements search.ReferenceResolver.
func (c CRAMResolver) ResolveReference(name string) (int, error) {
	rc, err := c.Open()
	if err != nil {
		return 0, fmt.Errorf("opening CRAM: %v", err)
	}
	defer rc.Close()
	r := io.Reader(rc)

	var def cramFileDefinition
	if err := cramRead(r, &def); err != nil {
		return 0, fmt.Errorf("reading file definition: %v", err)
	}
	if def.Magic != cramMagic {
		return 0, fmt.Errorf("invalid CRAM magic %08x", def.Magic)
	}
	if err := skipContainerHeader(r, def.MajorVersion); err != nil {
		return 0, fmt.Errorf("reading container header: %v", err)
	}
	bh, err := readCRAMBlockHeader(r)
	if err != nil {
		return 0, fmt.Errorf("reading block header: %v", err)
	}
	if bh.Method == 1 {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return 0, fmt.Errorf("reading gzipped SAM header: %v", err)
		}
		gz.Multistream(false)
		r = gz
	}

	var limit int32
	if err := cramRead(r, &limit); err != nil {
		return 0, fmt.Errorf("reading header length: %v", err)
	}
	return samTextReferenceID(io.LimitReader(r, int64(limit)), name)
}

func skipContainerHeader(r io.Reader, majorVersion uint8) error {
	var skip int32
	if err := cramRead(r, &skip); err != nil {
		return fmt.Errorf("skipping length: %v", err)
	}
	for i := 0; i < 7; i++ {
		if err := readITF8(r, &skip); err != nil {
			return fmt.Errorf("skipping header field: %v", err)
		}
	}
	var landmarkCount int32
	if err := readITF8(r, &landmarkCount); err != nil {
		return fmt.Errorf("skipping landmark count: %v", err)
	}
	for i := 0; i < int(landmarkCount); i++ {
		if err := readITF8(r, &skip); err != nil {
			return fmt.Errorf("skipping landmark %d: %v", i, err)
		}
	}
	if majorVersion >= 3 {
		if err := cramRead(r, &skip); err != nil {
			return fmt.Errorf("skipping CRC: %v", err)
		}
	}
	return nil
}

func readCRAMBlockHeader(r io.Reader) (*cramBlockHeader, error) {
	var b cramBlockHeader
	if err := cramRead(r, &b.Method); err != nil {
		return nil, fmt.Errorf("reading method: %v", err)
	}
	if err := cramRead(r, &b.ContentType); err != nil {
		return nil, fmt.Errorf("reading content type: %v", err)
	}
	if err := readITF8(r, &b.ContentID); err != nil {
		return nil, fmt.Errorf("reading content ID: %v", err)
	}
	if err := readITF8(r, &b.Length); err != nil {
		return nil, fmt.Errorf("reading length: %v", err)
	}
	if err := readITF8(r, &b.RawLength); err != nil {
		return nil, fmt.Errorf("reading raw length: %v", err)
	}
	return &b, nil
}

func readITF8(r io.Reader, i *int32) error {
	b := make([]byte, 1, 5)
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("reading first byte: %v", err)
	}
	b = b[:countLeadingOnes(b[0])+1]
	if _, err := io.ReadFull(r, b[1:]); err != nil {
		return fmt.Errorf("reading remaining bytes: %v", err)
	}
	switch n := len(b); n {
	case 1:
		*i = int32(b[0])
	case 2:
		*i = int32(uint32(b[0]&0x7f)<<8 | uint32(b[1]))
	case 3:
		*i = int32(uint32(b[0]&0x3f)<<16 | uint32(b[1])<<8 | uint32(b[2]))
	case 4:
		*i = int32(uint32(b[0]&0x1f)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	case 5:
		*i = int32(uint32(b[0]&0x0f)<<28 | uint32(b[1])<<20 | uint32(b[2])<<12 | uint32(b[3])<<4 | uint32(b[4]&0x0f))
	default:
		return fmt.Errorf("invalid ITF8 length: %d", n)
	}
	return nil
}

func countLeadingOnes(b byte) int {
	for i := 0; i < 4; i++ {
		if b&0x80 == 0 {
			return i
		}
		b <<= 1
	}
	return 4
}

func cramRead(r io.Reader, v interface{}) error {
	return binary.Read(r, binary.LittleEndian, v)
}
