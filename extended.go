package rawfile

// The trailing debug section is a sequence of {header, length, body}
// sub-segments. Sub-segments whose header carries bit 0x100 are
// transients; the rest are opaque data segments whose bytes load lazily
// on first access.

// transient marker bit in the sub-segment header
const extendedTransientBit int32 = 0x100

type ExtendedTransient struct {
	Header int32
	Data   []int32
}

type ExtendedDataSegment struct {
	Header int32

	loader func() ([]byte, error)
}

// Bytes materialises the segment body; the backing read happens on the
// first call only.
func (s *ExtendedDataSegment) Bytes() ([]byte, error) {
	if s.loader == nil {
		return nil, nil
	}
	return s.loader()
}

type ExtendedData struct {
	Header        int64
	Transients    []ExtendedTransient
	Data_segments []ExtendedDataSegment
}

// DecodeExtendedData parses the debug section of a packet. Malformed
// framing terminates the walk without error; whatever decoded before the
// damage is kept and the partial trailing sub-segment is discarded.
func DecodeExtendedData(reader *MemoryReader, offset int64, hdr *PacketHeader) (ExtendedData, error) {
	var extended ExtendedData

	length := 4 * int64(hdr.Num_debug_info_words)
	if length == 0 {
		return extended, nil
	}

	section, err := reader.SubView(offset+hdr.DebugOffset(), length)
	if err != nil {
		return extended, err
	}

	top, err := section.Uint32(0)
	if err != nil {
		return extended, err
	}
	extended.Header = int64(top)

	pos := int64(4)
	for pos+8 <= length {
		subHeader, _ := section.Int32(pos)
		wordCount, _ := section.Uint32(pos + 4)
		pos += 8

		bodyLen := 4 * int64(wordCount)
		if pos+bodyLen > length {
			// framing extends past the section; stop and keep what we have
			break
		}

		if subHeader&extendedTransientBit != 0 {
			data, err := ReadArrayOf[int32](section, pos, int(wordCount))
			if err != nil {
				break
			}
			extended.Transients = append(extended.Transients, ExtendedTransient{
				Header: subHeader,
				Data:   data,
			})
		} else {
			loader, err := section.ReadBytesLazy(pos, bodyLen)
			if err != nil {
				break
			}
			extended.Data_segments = append(extended.Data_segments, ExtendedDataSegment{
				Header: subHeader,
				loader: loader,
			})
		}

		pos += bodyLen
	}

	return extended, nil
}
