package rawfile

import (
	"strconv"
	"strings"
)

// FormatOptions localise the printed numbers. The defaults render the
// canonical vendor form; callers under other locales swap the separators.
type FormatOptions struct {
	Mass_precision    int
	Energy_precision  int
	Decimal_separator string
	List_separator    string
}

func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		Mass_precision:    2,
		Energy_precision:  2,
		Decimal_separator: ".",
		List_separator:    ", ",
	}
}

func (o *FormatOptions) formatMass(v float64) string {
	return o.localise(strconv.FormatFloat(v, 'f', o.Mass_precision, 64))
}

func (o *FormatOptions) formatEnergy(v float64) string {
	return o.localise(strconv.FormatFloat(v, 'f', o.Energy_precision, 64))
}

func (o *FormatOptions) localise(s string) string {
	if o.Decimal_separator != "." {
		s = strings.Replace(s, ".", o.Decimal_separator, 1)
	}
	return s
}

// PrintFilter renders a scan event to its canonical filter string.
// The walk emits phrases in a fixed order, each followed by one space,
// and trims the trailing whitespace. For every event E,
// ParseFilter(PrintFilter(E)) equals E under the event ordering.
func PrintFilter(e *ScanEvent, opts FormatOptions) string {
	var b strings.Builder

	emit := func(phrase string) {
		if phrase != "" {
			b.WriteString(phrase)
			b.WriteByte(' ')
		}
	}

	emit(AnalyserNames[e.Analyser])
	emit(segScanPhrase(e))
	emit(polarityPhrase(e.Polarity))
	emit(dataTypePhrase(e.Scan_data_type))
	emit(IonizationNames[e.Ionization_mode])
	emit(triPhrase(e.Corona, "corona"))
	emit(triPhrase(e.Photo_ionization, "pi"))
	emit(voltagePhrase("sid", e.Source_fragmentation, e.Source_fragmentation_type,
		sourceFragmentationValues(e), &opts))
	emit(voltagePhrase("cv", e.Compensation_voltage, e.Compensation_voltage_type,
		compensationVoltageValues(e), &opts))
	emit(detectorPhrase(e, &opts))
	emit(triPhrase(e.Turbo_scan, "t"))
	emit(triPhrase(e.Enhanced, "E"))
	emit(triPhrase(e.Param_a, "a"))
	emit(triPhrase(e.Param_b, "b"))
	emit(triPhrase(e.Param_f, "f"))
	emit(triPhrase(e.Sps_multi_notch, "sps"))
	emit(triPhrase(e.Param_r, "r"))
	emit(triPhrase(e.Param_v, "v"))
	emit(triPhrase(e.Dependent, "d"))
	emit(triPhrase(e.Wideband, "w"))

	for i, letter := range lowerCaseLetters {
		if e.Lower_case_applied&(1<<uint(i)) != 0 {
			if e.Lower_case_flags&(1<<uint(i)) != 0 {
				emit(string(letter))
			} else {
				emit("!" + string(letter))
			}
		}
	}
	for _, letter := range upperCaseLetters {
		bit := uint(letter - 'A')
		if e.Upper_case_applied&(1<<bit) != 0 {
			if e.Upper_case_flags&(1<<bit) != 0 {
				emit(string(letter))
			} else {
				emit("!" + string(letter))
			}
		}
	}

	emit(triPhrase(e.Supplemental_activation, "sa"))
	emit(triPhrase(e.Multi_state_activation, "msa"))
	emit(accurateMassPhrase(e.Accurate_mass))
	emit(triPhrase(e.Ultra, "u"))
	emit(ScanModeNames[e.Scan_mode])
	emit(sectorScanPhrase(e.Sector_scan))
	emit(triPhrase(e.Lock, "lock"))
	emit(triPhrase(e.Multiplex, "msx"))
	emit(msOrderPhrase(e, &opts))
	emit(dissociationPhrase(e.Mpd_type, e.Mpd_value, "mpd", &opts))
	emit(dissociationPhrase(e.Ecd_type, e.Ecd_value, "ecd", &opts))
	emit(freeRegionPhrase(e.Free_region))
	emit(massRangesPhrase(e, &opts))

	return strings.TrimRight(b.String(), " ")
}

func triPhrase(t TriState, name string) string {
	switch t {
	case TRI_ON:
		return name
	case TRI_OFF:
		return "!" + name
	}
	return ""
}

func polarityPhrase(p Polarity) string {
	switch p {
	case POLARITY_POSITIVE:
		return "+"
	case POLARITY_NEGATIVE:
		return "-"
	}
	return ""
}

func dataTypePhrase(t ScanDataType) string {
	switch t {
	case SCAN_DATA_PROFILE:
		return "p"
	case SCAN_DATA_CENTROID:
		return "c"
	}
	return ""
}

func segScanPhrase(e *ScanEvent) string {
	if e.Scan_type_index == -1 {
		return ""
	}
	seg := int(int16(e.Scan_type_index >> 16))
	evt := int(uint16(e.Scan_type_index & 0xFFFF))
	return "{" + strconv.Itoa(seg) + "," + strconv.Itoa(evt) + "}"
}

func accurateMassPhrase(a AccurateMass) string {
	switch a {
	case ACCURATE_MASS_OFF:
		return "!AM"
	case ACCURATE_MASS_ON:
		return "AM"
	case ACCURATE_MASS_INTERNAL:
		return "AMI"
	case ACCURATE_MASS_EXTERNAL:
		return "AME"
	}
	return ""
}

func sectorScanPhrase(s SectorScan) string {
	switch s {
	case SECTOR_SCAN_B:
		return "BSCAN"
	case SECTOR_SCAN_E:
		return "ESCAN"
	}
	return ""
}

func freeRegionPhrase(f FreeRegion) string {
	switch f {
	case FREE_REGION_1:
		return "ffr1"
	case FREE_REGION_2:
		return "ffr2"
	}
	return ""
}

func detectorPhrase(e *ScanEvent, opts *FormatOptions) string {
	switch e.Detector_state {
	case TRI_ON:
		return "det=" + opts.formatEnergy(e.Detector_value)
	case TRI_OFF:
		return "!det"
	}
	return ""
}

func dissociationPhrase(t TriState, value float64, name string, opts *FormatOptions) string {
	switch t {
	case TRI_ON:
		return name + "=" + opts.formatEnergy(value)
	case TRI_OFF:
		return "!" + name
	}
	return ""
}

// The flat voltage buffer stores the source fragmentation single/ramp
// values first, then the compensation voltage ones, then the per-range
// SIM slots.

func voltageValueCount(t VoltageType) int {
	switch t {
	case VOLTAGE_SINGLE:
		return 1
	case VOLTAGE_RAMP:
		return 2
	}
	return 0
}

func sourceFragmentationValues(e *ScanEvent) []float64 {
	n := voltageValueCount(e.Source_fragmentation_type)
	if n > len(e.Source_fragmentations) {
		return nil
	}
	return e.Source_fragmentations[:n]
}

func compensationVoltageValues(e *ScanEvent) []float64 {
	skip := voltageValueCount(e.Source_fragmentation_type)
	n := voltageValueCount(e.Compensation_voltage_type)
	if skip+n > len(e.Source_fragmentations) {
		return nil
	}
	return e.Source_fragmentations[skip : skip+n]
}

func simSlotValues(e *ScanEvent) []float64 {
	if e.Source_fragmentation_type != VOLTAGE_SIM && e.Compensation_voltage_type != VOLTAGE_SIM {
		return nil
	}
	skip := voltageValueCount(e.Source_fragmentation_type) +
		voltageValueCount(e.Compensation_voltage_type)
	if skip+len(e.Mass_ranges) > len(e.Source_fragmentations) {
		return nil
	}
	return e.Source_fragmentations[skip : skip+len(e.Mass_ranges)]
}

func voltagePhrase(name string, flag TriState, vtype VoltageType,
	values []float64, opts *FormatOptions) string {

	switch flag {
	case TRI_OFF:
		return "!" + name
	case TRI_ANY:
		return ""
	}

	switch vtype {
	case VOLTAGE_SINGLE:
		if len(values) == 1 {
			return name + "=" + opts.formatEnergy(values[0])
		}
	case VOLTAGE_RAMP:
		if len(values) == 2 {
			return name + "=" + opts.formatEnergy(values[0]) + "-" + opts.formatEnergy(values[1])
		}
	case VOLTAGE_SIM:
		// SIM energies print inside the mass range list
		return ""
	}

	return name
}

func msOrderPhrase(e *ScanEvent, opts *FormatOptions) string {
	var b strings.Builder

	switch {
	case e.Ms_order == MS_ORDER_ANY:
		return ""
	case e.Ms_order == MS_ORDER_PARENT:
		b.WriteString("pr")
	case e.Ms_order == MS_ORDER_NEUTRAL_LOSS:
		b.WriteString("cnl")
	case e.Ms_order == MS_ORDER_NEUTRAL_GAIN:
		b.WriteString("cng")
	case e.Ms_order == MS_ORDER_MS1:
		b.WriteString("ms")
	default:
		b.WriteString("ms")
		b.WriteString(strconv.Itoa(int(e.Ms_order)))
	}

	for i := 0; i < len(e.Reactions); i++ {
		reaction := e.Reactions[i]
		if reaction.Is_multiple {
			// rendered with its primary below
			continue
		}

		b.WriteByte(' ')
		b.WriteString(opts.formatMass(reaction.Precursor_mz))
		writeActivationStep(&b, reaction, opts)

		for j := i + 1; j < len(e.Reactions) && e.Reactions[j].Is_multiple; j++ {
			writeActivationStep(&b, e.Reactions[j], opts)
		}
	}

	return b.String()
}

func writeActivationStep(b *strings.Builder, reaction Reaction, opts *FormatOptions) {
	if reaction.Activation == ACTIVATION_ANY {
		return
	}
	b.WriteByte('@')
	b.WriteString(ActivationNames[reaction.Activation])
	if reaction.Energy_valid {
		b.WriteString(opts.formatEnergy(reaction.Collision_energy))
	}
}

func massRangesPhrase(e *ScanEvent, opts *FormatOptions) string {
	if len(e.Mass_ranges) == 0 {
		return ""
	}

	sim := simSlotValues(e)

	var b strings.Builder
	b.WriteByte('[')
	for i, r := range e.Mass_ranges {
		if i > 0 {
			b.WriteString(opts.List_separator)
		}
		b.WriteString(opts.formatMass(r.Low))
		b.WriteByte('-')
		b.WriteString(opts.formatMass(r.High))
		if sim != nil {
			b.WriteByte('@')
			b.WriteString(opts.formatEnergy(sim[i]))
		}
	}
	b.WriteByte(']')

	return b.String()
}
