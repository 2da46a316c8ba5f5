package rawfile

import (
	"github.com/samber/lo"
)

// The categorical fields of a scan event are closed enumerations with an
// "any" sentinel. Unknown on-disk values map to the sentinel rather than
// failing the decode.

type TriState uint8

const (
	TRI_OFF TriState = iota
	TRI_ON
	TRI_ANY
)

type MassAnalyser uint8

const (
	ANALYSER_ITMS MassAnalyser = iota
	ANALYSER_TQMS
	ANALYSER_SQMS
	ANALYSER_TOFMS
	ANALYSER_FTMS
	ANALYSER_SECTOR
	ANALYSER_ANY // 6
)

type Polarity uint8

const (
	POLARITY_NEGATIVE Polarity = iota
	POLARITY_POSITIVE
	POLARITY_ANY
)

type ScanMode uint8

const (
	SCAN_MODE_FULL ScanMode = iota
	SCAN_MODE_ZOOM
	SCAN_MODE_SIM
	SCAN_MODE_SRM
	SCAN_MODE_CRM
	SCAN_MODE_Q1MS
	SCAN_MODE_Q3MS
	SCAN_MODE_ANY // 7
)

type ScanDataType uint8

const (
	SCAN_DATA_CENTROID ScanDataType = iota
	SCAN_DATA_PROFILE
	SCAN_DATA_ANY
)

type IonizationMode uint8

const (
	IONIZATION_EI IonizationMode = iota
	IONIZATION_CI
	IONIZATION_FAB
	IONIZATION_ESI
	IONIZATION_APCI
	IONIZATION_NSI
	IONIZATION_TSP
	IONIZATION_FD
	IONIZATION_MALDI
	IONIZATION_GD
	IONIZATION_ANY // 10
)

type SectorScan uint8

const (
	SECTOR_SCAN_B SectorScan = iota
	SECTOR_SCAN_E
	SECTOR_SCAN_ANY
)

type FreeRegion uint8

const (
	FREE_REGION_1 FreeRegion = iota
	FREE_REGION_2
	FREE_REGION_ANY
)

type AccurateMass uint8

const (
	ACCURATE_MASS_OFF AccurateMass = iota
	ACCURATE_MASS_ON
	ACCURATE_MASS_INTERNAL
	ACCURATE_MASS_EXTERNAL
	ACCURATE_MASS_ANY
)

// VoltageType covers both the source fragmentation and the compensation
// voltage selections; SIM carries one value per mass range.
type VoltageType uint8

const (
	VOLTAGE_NONE VoltageType = iota
	VOLTAGE_SINGLE
	VOLTAGE_RAMP
	VOLTAGE_SIM
	VOLTAGE_ANY
)

// MS order. Negative orders are the precursor style scans, positive orders
// the MS^n depth. Zero is the "any" sentinel.
type MsOrder int8

const (
	MS_ORDER_NEUTRAL_GAIN MsOrder = -3
	MS_ORDER_NEUTRAL_LOSS MsOrder = -2
	MS_ORDER_PARENT       MsOrder = -1
	MS_ORDER_ANY          MsOrder = 0
	MS_ORDER_MS1          MsOrder = 1
	MS_ORDER_MS2          MsOrder = 2
	MS_ORDER_MAX          MsOrder = 15
)

// Activation is the dissociation method of one reaction step.
// The tail of the enumeration is the 26 opaque mode letters the vendor
// reserves; they decode and print but carry no further semantics here.
type Activation uint8

const (
	ACTIVATION_CID Activation = iota
	ACTIVATION_MPD
	ACTIVATION_ECD
	ACTIVATION_PQD
	ACTIVATION_ETD
	ACTIVATION_HCD
	ACTIVATION_ANY // 6
	ACTIVATION_PTR
	ACTIVATION_NETD
	ACTIVATION_NPTR
	ACTIVATION_UVPD
	ACTIVATION_EID
	ACTIVATION_EE
	ACTIVATION_SA
	ACTIVATION_MODE_A
	ACTIVATION_MODE_B
	ACTIVATION_MODE_C
	ACTIVATION_MODE_D
	ACTIVATION_MODE_E
	ACTIVATION_MODE_F
	ACTIVATION_MODE_G
	ACTIVATION_MODE_H
	ACTIVATION_MODE_I
	ACTIVATION_MODE_J
	ACTIVATION_MODE_K
	ACTIVATION_MODE_L
	ACTIVATION_MODE_M
	ACTIVATION_MODE_N
	ACTIVATION_MODE_O
	ACTIVATION_MODE_P
	ACTIVATION_MODE_Q
	ACTIVATION_MODE_R
	ACTIVATION_MODE_S
	ACTIVATION_MODE_T
	ACTIVATION_MODE_U
	ACTIVATION_MODE_V
	ACTIVATION_MODE_W
	ACTIVATION_MODE_X
	ACTIVATION_MODE_Y
	ACTIVATION_MODE_Z // 39
)

// Activation labels as they appear in filter strings.
var ActivationNames = map[Activation]string{
	ACTIVATION_CID:    "cid",
	ACTIVATION_MPD:    "mpd",
	ACTIVATION_ECD:    "ecd",
	ACTIVATION_PQD:    "pqd",
	ACTIVATION_ETD:    "etd",
	ACTIVATION_HCD:    "hcd",
	ACTIVATION_PTR:    "ptr",
	ACTIVATION_NETD:   "netd",
	ACTIVATION_NPTR:   "nptr",
	ACTIVATION_UVPD:   "uvpd",
	ACTIVATION_EID:    "eid",
	ACTIVATION_EE:     "ee",
	ACTIVATION_SA:     "sa",
	ACTIVATION_MODE_A: "modeA",
	ACTIVATION_MODE_B: "modeB",
	ACTIVATION_MODE_C: "modeC",
	ACTIVATION_MODE_D: "modeD",
	ACTIVATION_MODE_E: "modeE",
	ACTIVATION_MODE_F: "modeF",
	ACTIVATION_MODE_G: "modeG",
	ACTIVATION_MODE_H: "modeH",
	ACTIVATION_MODE_I: "modeI",
	ACTIVATION_MODE_J: "modeJ",
	ACTIVATION_MODE_K: "modeK",
	ACTIVATION_MODE_L: "modeL",
	ACTIVATION_MODE_M: "modeM",
	ACTIVATION_MODE_N: "modeN",
	ACTIVATION_MODE_O: "modeO",
	ACTIVATION_MODE_P: "modeP",
	ACTIVATION_MODE_Q: "modeQ",
	ACTIVATION_MODE_R: "modeR",
	ACTIVATION_MODE_S: "modeS",
	ACTIVATION_MODE_T: "modeT",
	ACTIVATION_MODE_U: "modeU",
	ACTIVATION_MODE_V: "modeV",
	ACTIVATION_MODE_W: "modeW",
	ACTIVATION_MODE_X: "modeX",
	ACTIVATION_MODE_Y: "modeY",
	ACTIVATION_MODE_Z: "modeZ",
}

var InvActivationNames = lo.Invert(ActivationNames)

var AnalyserNames = map[MassAnalyser]string{
	ANALYSER_ITMS:   "ITMS",
	ANALYSER_TQMS:   "TQMS",
	ANALYSER_SQMS:   "SQMS",
	ANALYSER_TOFMS:  "TOFMS",
	ANALYSER_FTMS:   "FTMS",
	ANALYSER_SECTOR: "Sector",
}

var InvAnalyserNames = lo.Invert(AnalyserNames)

var IonizationNames = map[IonizationMode]string{
	IONIZATION_EI:    "EI",
	IONIZATION_CI:    "CI",
	IONIZATION_FAB:   "FAB",
	IONIZATION_ESI:   "ESI",
	IONIZATION_APCI:  "APCI",
	IONIZATION_NSI:   "NSI",
	IONIZATION_TSP:   "TSP",
	IONIZATION_FD:    "FD",
	IONIZATION_MALDI: "MALDI",
	IONIZATION_GD:    "GD",
}

var InvIonizationNames = lo.Invert(IonizationNames)

var ScanModeNames = map[ScanMode]string{
	SCAN_MODE_FULL: "Full",
	SCAN_MODE_ZOOM: "Z",
	SCAN_MODE_SIM:  "SIM",
	SCAN_MODE_SRM:  "SRM",
	SCAN_MODE_CRM:  "CRM",
	SCAN_MODE_Q1MS: "Q1MS",
	SCAN_MODE_Q3MS: "Q3MS",
}

var InvScanModeNames = lo.Invert(ScanModeNames)

// anyTri maps an on-disk byte to a TriState, coercing unknown values
// to the any sentinel.
func anyTri(v uint8) TriState {
	if v > uint8(TRI_ANY) {
		return TRI_ANY
	}
	return TriState(v)
}

func anyAnalyser(v uint8) MassAnalyser {
	if v > uint8(ANALYSER_ANY) {
		return ANALYSER_ANY
	}
	return MassAnalyser(v)
}

func anyPolarity(v uint8) Polarity {
	if v > uint8(POLARITY_ANY) {
		return POLARITY_ANY
	}
	return Polarity(v)
}

func anyScanMode(v uint8) ScanMode {
	if v > uint8(SCAN_MODE_ANY) {
		return SCAN_MODE_ANY
	}
	return ScanMode(v)
}

func anyScanDataType(v uint8) ScanDataType {
	if v > uint8(SCAN_DATA_ANY) {
		return SCAN_DATA_ANY
	}
	return ScanDataType(v)
}

func anyIonization(v uint8) IonizationMode {
	if v > uint8(IONIZATION_ANY) {
		return IONIZATION_ANY
	}
	return IonizationMode(v)
}

func anySectorScan(v uint8) SectorScan {
	if v > uint8(SECTOR_SCAN_ANY) {
		return SECTOR_SCAN_ANY
	}
	return SectorScan(v)
}

func anyFreeRegion(v uint8) FreeRegion {
	if v > uint8(FREE_REGION_ANY) {
		return FREE_REGION_ANY
	}
	return FreeRegion(v)
}

func anyAccurateMass(v uint8) AccurateMass {
	if v > uint8(ACCURATE_MASS_ANY) {
		return ACCURATE_MASS_ANY
	}
	return AccurateMass(v)
}

func anyVoltageType(v uint8) VoltageType {
	if v > uint8(VOLTAGE_ANY) {
		return VOLTAGE_ANY
	}
	return VoltageType(v)
}

func anyActivation(v uint8) Activation {
	if v > uint8(ACTIVATION_MODE_Z) {
		return ACTIVATION_ANY
	}
	return Activation(v)
}

func anyMsOrder(v int8) MsOrder {
	if v < int8(MS_ORDER_NEUTRAL_GAIN) || v > int8(MS_ORDER_MAX) {
		return MS_ORDER_ANY
	}
	return MsOrder(v)
}
