// Package tivars writes TI-84 Plus CE variable files (.8xv) that the
// calculator link software can send to a device.
package tivars

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	magic = "**TI83F*"

	// ProductTI84PlusCE is the product id byte of the TI-84 Plus CE family.
	ProductTI84PlusCE = 0x13

	commentLength = 42
	nameLength    = 8

	typeAppVar = 0x15

	flagArchived = 0x80

	// metaLength is the size of the var entry meta section for flash-era models.
	metaLength = 13

	// MaxAppVarData is the largest AppVar body that fits the 16-bit length fields.
	MaxAppVarData = 0xFFFF - 2 - metaLength - 4
)

var (
	ErrNameLength = errors.New("tivars: name must be 1 to 8 bytes")
	ErrTooLarge   = errors.New("tivars: data too large")
)

// AppVar is an application variable holding arbitrary bytes.
type AppVar struct {
	Name     string
	Data     []byte
	Archived bool
}

// Export encodes v as a single-entry .8xv file. Comments longer than 42
// bytes are truncated.
//
// Layout (little endian):
//
//	header   "**TI83F*" 1A 0A product comment[42] len(entry)
//	entry    0D 00 len(var) type name[8] version flag len(var) var
//	var      len(data) data
//	trailer  sum(entry bytes) & 0xFFFF
func (v AppVar) Export(comment string) ([]byte, error) {
	if len(v.Name) == 0 || len(v.Name) > nameLength {
		return nil, ErrNameLength
	}
	if len(v.Data) > MaxAppVarData {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(v.Data))
	}

	varData := make([]byte, 2+len(v.Data))
	binary.LittleEndian.PutUint16(varData, uint16(len(v.Data)))
	copy(varData[2:], v.Data)

	entry := make([]byte, 0, 2+metaLength+len(varData))
	entry = binary.LittleEndian.AppendUint16(entry, metaLength)
	entry = binary.LittleEndian.AppendUint16(entry, uint16(len(varData)))
	entry = append(entry, typeAppVar)

	var name [nameLength]byte
	copy(name[:], v.Name)
	entry = append(entry, name[:]...)

	flag := byte(0)
	if v.Archived {
		flag = flagArchived
	}
	entry = append(entry, 0, flag)
	entry = binary.LittleEndian.AppendUint16(entry, uint16(len(varData)))
	entry = append(entry, varData...)

	out := make([]byte, 0, len(magic)+3+commentLength+2+len(entry)+2)
	out = append(out, magic...)
	out = append(out, 0x1A, 0x0A, ProductTI84PlusCE)

	var c [commentLength]byte
	copy(c[:], comment)
	out = append(out, c[:]...)

	out = binary.LittleEndian.AppendUint16(out, uint16(len(entry)))
	out = append(out, entry...)
	out = binary.LittleEndian.AppendUint16(out, Checksum(entry))

	return out, nil
}

// Checksum is the lower 16 bits of the byte sum of the entry section.
func Checksum(entry []byte) uint16 {
	var sum uint32
	for _, b := range entry {
		sum += uint32(b)
	}
	return uint16(sum)
}
