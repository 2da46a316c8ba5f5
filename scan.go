package rawfile

// ScanReadOptions select what a packet read materialises.
type ScanReadOptions struct {
	// Decode the profile section. Centroid-only consumers skip the
	// heaviest part of the packet by leaving this off.
	Profile bool

	// Keep reference/exception peaks in the outputs; off suppresses them
	// with zeroed intensity after capture into Reference_peaks.
	Include_ref_peaks bool

	// Zero-fill linear-trap profile gaps.
	Zero_padding bool
}

// DecodePacket decodes the packet at offset. The scan event supplies the
// mass calibrators the FT profile conversion needs; it may be nil for
// centroid-only reads.
func DecodePacket(reader *MemoryReader, offset int64, event *ScanEvent, opts ScanReadOptions) (*Packet, error) {
	hdr, err := DecodePacketHeader(reader, offset)
	if err != nil {
		return nil, err
	}

	packet := &Packet{Header: hdr}

	packet.Label_peaks, packet.Reference_peaks, packet.Widths, err =
		DecodeCentroids(reader, offset, &hdr, opts.Include_ref_peaks)
	if err != nil {
		return nil, err
	}

	if opts.Profile && hdr.Num_profile_words > 0 {
		if hdr.FTLayout() {
			var calibrators []float64
			if event != nil {
				calibrators = event.Mass_calibrators
			}
			packet.Segments, err = DecodeFTProfile(reader, offset, &hdr,
				calibrators, packet.Reference_peaks, opts.Include_ref_peaks)
		} else {
			packet.Segments, err = DecodeLTProfile(reader, offset, &hdr, opts.Zero_padding)
		}
		if err != nil {
			return nil, err
		}
	}

	packet.Noise, err = decodeNoise(reader, offset, &hdr)
	if err != nil {
		return nil, err
	}

	// extended data framing errors truncate rather than fail the packet
	packet.Extended, _ = DecodeExtendedData(reader, offset, &hdr)

	return packet, nil
}

// ReadScan resolves a scan number through the index and decodes its
// packet, attaching the unique scan event when the trailer is supplied.
func ReadScan(reader *MemoryReader, index *ScanIndex, trailer *TrailerScanEvents,
	scan_number int32, opts ScanReadOptions) (*Packet, ScanIndexRecord, error) {

	record, err := index.Record(scan_number)
	if err != nil {
		return nil, record, err
	}

	var event *ScanEvent
	if trailer != nil {
		i := int(scan_number - index.First_spectrum)
		if i >= 0 && i < len(trailer.Index_to_unique) {
			event = trailer.Unique_events[trailer.Index_to_unique[i]]
		}
	}

	packet, err := DecodePacket(reader, record.Data_offset, event, opts)
	if err != nil {
		return nil, record, err
	}

	return packet, record, nil
}
