package rawfile

// Reaction describes one precursor step in an MS/MS chain; the isolation
// window, the activation method and the collision energy.
type Reaction struct {
	Precursor_mz           float64
	Isolation_width        float64
	Isolation_width_offset float64
	Collision_energy       float64
	Energy_valid           bool
	Activation             Activation
	Is_multiple            bool
	Precursor_range_valid  bool
	First_mz               float64
	Last_mz                float64
}

// EnergyValidEx packs {energy_valid:1, activation:8, is_multiple:1} into a
// 16bit word. The packed form is what the event ordering compares so that
// events from different file revisions stay comparable.
func (r *Reaction) EnergyValidEx() uint16 {
	var packed uint16

	if r.Energy_valid {
		packed |= 0x1
	}
	packed |= uint16(r.Activation) << 1
	if r.Is_multiple {
		packed |= 0x200
	}

	return packed
}

// Fixed byte sizes of the on-disk reaction record per file revision.
// The reader selects the largest revision at or below the file revision.
var reactionLayouts = []revisionLayout{
	{14, 24}, // precursor, isolation width, collision energy
	{31, 28}, // + energy_valid_ex
	{65, 48}, // + precursor range
	{66, 56}, // + isolation width offset
}

// decodeReaction reads one reaction record at offset and widens it to the
// canonical form, applying the revision defaults:
// < 66 zeroes the isolation width offset, < 65 clears the precursor range,
// < 31 forces the energy valid bit.
func decodeReaction(reader *MemoryReader, offset int64, revision int32) (Reaction, int64, error) {
	var reaction Reaction

	size, err := layoutSize(reactionLayouts, revision)
	if err != nil {
		return reaction, 0, err
	}

	reaction.Precursor_mz, err = reader.Float64(offset)
	if err != nil {
		return reaction, 0, errAtOffset(ErrTruncatedRecord, offset)
	}
	reaction.Isolation_width, _ = reader.Float64(offset + 8)
	reaction.Collision_energy, err = reader.Float64(offset + 16)
	if err != nil {
		return reaction, 0, errAtOffset(ErrTruncatedRecord, offset)
	}

	if revision >= 31 {
		packed, err := reader.Uint16(offset + 24)
		if err != nil {
			return reaction, 0, errAtOffset(ErrTruncatedRecord, offset)
		}
		reaction.Energy_valid = packed&0x1 != 0
		reaction.Activation = anyActivation(uint8(packed >> 1))
		reaction.Is_multiple = packed&0x200 != 0
	} else {
		reaction.Energy_valid = true
		reaction.Activation = ACTIVATION_ANY
	}

	if revision >= 65 {
		valid, err := reader.Uint32(offset + 28)
		if err != nil {
			return reaction, 0, errAtOffset(ErrTruncatedRecord, offset)
		}
		reaction.Precursor_range_valid = valid != 0
		reaction.First_mz, _ = reader.Float64(offset + 32)
		reaction.Last_mz, err = reader.Float64(offset + 40)
		if err != nil {
			return reaction, 0, errAtOffset(ErrTruncatedRecord, offset)
		}
	}

	if revision >= 66 {
		reaction.Isolation_width_offset, err = reader.Float64(offset + 48)
		if err != nil {
			return reaction, 0, errAtOffset(ErrTruncatedRecord, offset)
		}
	}

	return reaction, size, nil
}

// compareReactions orders two reaction slices length first then pairwise;
// precursor masses within tolerance compare equal.
func compareReactions(a, b []Reaction, tolerance float64) int {
	if c := cmpInt(len(a), len(b)); c != 0 {
		return c
	}

	for i := range a {
		if c := cmpTolerance(a[i].Precursor_mz, b[i].Precursor_mz, tolerance); c != 0 {
			return c
		}
		if c := cmpTolerance(a[i].Isolation_width, b[i].Isolation_width, tolerance); c != 0 {
			return c
		}
		if c := cmpTolerance(a[i].Collision_energy, b[i].Collision_energy, tolerance); c != 0 {
			return c
		}
		if c := cmpInt(int(a[i].EnergyValidEx()), int(b[i].EnergyValidEx())); c != 0 {
			return c
		}
		if c := cmpBool(a[i].Precursor_range_valid, b[i].Precursor_range_valid); c != 0 {
			return c
		}
		if a[i].Precursor_range_valid {
			if c := cmpTolerance(a[i].First_mz, b[i].First_mz, tolerance); c != 0 {
				return c
			}
			if c := cmpTolerance(a[i].Last_mz, b[i].Last_mz, tolerance); c != 0 {
				return c
			}
		}
		if c := cmpTolerance(a[i].Isolation_width_offset, b[i].Isolation_width_offset, tolerance); c != 0 {
			return c
		}
	}

	return 0
}
