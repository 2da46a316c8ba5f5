package rawfile

// Filter-string token tables. Whole tokens are looked up case-insensitively
// in the named dictionary first; only tokens that miss fall through to the
// single-letter tables. The precedence matters: "sps" must never decay into
// the letter flag "s".

type tokenCategory int

const (
	catAnalyser tokenCategory = iota
	catPolarity
	catDataType
	catIonization
	catScanMode
	catMsOrder
	catCorona
	catPhotoIonization
	catSid
	catCv
	catDetector
	catTurbo
	catEnhanced
	catParamA
	catParamB
	catParamF
	catSps
	catParamR
	catParamV
	catDependent
	catWideband
	catSa
	catMsa
	catAccurateMass
	catUltra
	catSectorScan
	catLock
	catMultiplex
	catMpd
	catEcd
	catFreeRegion
	catCount
)

type tokenDef struct {
	category tokenCategory
	value    int

	// value-carrying tokens accept "=V" or "=V1-V2"
	takes_value bool

	// tri-state tokens accept a leading '!' meaning explicit off
	negatable bool
}

// namedTokens maps the lower-cased token literal to its definition.
var namedTokens = map[string]tokenDef{
	// analysers
	"itms":   {category: catAnalyser, value: int(ANALYSER_ITMS)},
	"tqms":   {category: catAnalyser, value: int(ANALYSER_TQMS)},
	"sqms":   {category: catAnalyser, value: int(ANALYSER_SQMS)},
	"tofms":  {category: catAnalyser, value: int(ANALYSER_TOFMS)},
	"ftms":   {category: catAnalyser, value: int(ANALYSER_FTMS)},
	"sector": {category: catAnalyser, value: int(ANALYSER_SECTOR)},

	// polarity
	"+": {category: catPolarity, value: int(POLARITY_POSITIVE)},
	"-": {category: catPolarity, value: int(POLARITY_NEGATIVE)},

	// scan data type
	"p": {category: catDataType, value: int(SCAN_DATA_PROFILE)},
	"c": {category: catDataType, value: int(SCAN_DATA_CENTROID)},

	// ionization
	"ei":    {category: catIonization, value: int(IONIZATION_EI)},
	"ci":    {category: catIonization, value: int(IONIZATION_CI)},
	"fab":   {category: catIonization, value: int(IONIZATION_FAB)},
	"esi":   {category: catIonization, value: int(IONIZATION_ESI)},
	"apci":  {category: catIonization, value: int(IONIZATION_APCI)},
	"nsi":   {category: catIonization, value: int(IONIZATION_NSI)},
	"tsp":   {category: catIonization, value: int(IONIZATION_TSP)},
	"fd":    {category: catIonization, value: int(IONIZATION_FD)},
	"maldi": {category: catIonization, value: int(IONIZATION_MALDI)},
	"gd":    {category: catIonization, value: int(IONIZATION_GD)},

	// scan modes
	"full": {category: catScanMode, value: int(SCAN_MODE_FULL)},
	"z":    {category: catScanMode, value: int(SCAN_MODE_ZOOM)},
	"sim":  {category: catScanMode, value: int(SCAN_MODE_SIM)},
	"srm":  {category: catScanMode, value: int(SCAN_MODE_SRM)},
	"crm":  {category: catScanMode, value: int(SCAN_MODE_CRM)},
	"q1ms": {category: catScanMode, value: int(SCAN_MODE_Q1MS)},
	"q3ms": {category: catScanMode, value: int(SCAN_MODE_Q3MS)},

	// ms order meta prefixes; "msN" and "msNd" parse structurally
	"ms":  {category: catMsOrder, value: int(MS_ORDER_MS1)},
	"pr":  {category: catMsOrder, value: int(MS_ORDER_PARENT)},
	"cnl": {category: catMsOrder, value: int(MS_ORDER_NEUTRAL_LOSS)},
	"cng": {category: catMsOrder, value: int(MS_ORDER_NEUTRAL_GAIN)},

	// source features
	"corona": {category: catCorona, negatable: true},
	"pi":     {category: catPhotoIonization, negatable: true},
	"sid":    {category: catSid, takes_value: true, negatable: true},
	"cv":     {category: catCv, takes_value: true, negatable: true},
	"det":    {category: catDetector, takes_value: true, negatable: true},

	// letter-backed named flags
	"t":   {category: catTurbo, negatable: true},
	"e":   {category: catEnhanced, negatable: true},
	"a":   {category: catParamA, negatable: true},
	"b":   {category: catParamB, negatable: true},
	"f":   {category: catParamF, negatable: true},
	"sps": {category: catSps, negatable: true},
	"r":   {category: catParamR, negatable: true},
	"v":   {category: catParamV, negatable: true},
	"d":   {category: catDependent, negatable: true},
	"w":   {category: catWideband, negatable: true},
	"u":   {category: catUltra, negatable: true},

	"sa":  {category: catSa, negatable: true},
	"msa": {category: catMsa, negatable: true},

	"am":  {category: catAccurateMass, value: int(ACCURATE_MASS_ON), negatable: true},
	"ami": {category: catAccurateMass, value: int(ACCURATE_MASS_INTERNAL)},
	"ame": {category: catAccurateMass, value: int(ACCURATE_MASS_EXTERNAL)},

	"bscan": {category: catSectorScan, value: int(SECTOR_SCAN_B)},
	"escan": {category: catSectorScan, value: int(SECTOR_SCAN_E)},

	"lock": {category: catLock, negatable: true},
	"msx":  {category: catMultiplex, negatable: true},

	"mpd": {category: catMpd, takes_value: true, negatable: true},
	"ecd": {category: catEcd, takes_value: true, negatable: true},

	"ffr1": {category: catFreeRegion, value: int(FREE_REGION_1)},
	"ffr2": {category: catFreeRegion, value: int(FREE_REGION_2)},
}

// The letter tables. Letters consumed by named tokens never appear here;
// the remaining letters carry the generic lower/upper flag bitsets.
// Lower-case bits are positional within lowerCaseLetters (16 bit field),
// upper-case bits are letter-'A' within a 31 bit field.
var lowerCaseLetters = []byte{'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'q', 's', 'x', 'y'}

var upperCaseLetters = []byte{'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'Q', 'S', 'X', 'Y'}

// lowerLetterBit maps letter -> bit position in Lower_case_flags.
var lowerLetterBit = func() map[byte]uint {
	m := make(map[byte]uint, len(lowerCaseLetters))
	for i, l := range lowerCaseLetters {
		m[l] = uint(i)
	}
	return m
}()

// upperLetterBit maps letter -> bit position in Upper_case_flags.
var upperLetterBit = func() map[byte]uint {
	m := make(map[byte]uint, len(upperCaseLetters))
	for _, l := range upperCaseLetters {
		m[l] = uint(l - 'A')
	}
	return m
}()

// category labels for duplicate-token diagnostics
var tokenCategoryNames = map[tokenCategory]string{
	catAnalyser:        "analyser",
	catPolarity:        "polarity",
	catDataType:        "scan data type",
	catIonization:      "ionization",
	catScanMode:        "scan mode",
	catMsOrder:         "ms order",
	catCorona:          "corona",
	catPhotoIonization: "photo ionization",
	catSid:             "source fragmentation",
	catCv:              "compensation voltage",
	catDetector:        "detector",
	catTurbo:           "turbo scan",
	catEnhanced:        "enhanced",
	catParamA:          "param a",
	catParamB:          "param b",
	catParamF:          "param f",
	catSps:             "sps multi notch",
	catParamR:          "param r",
	catParamV:          "param v",
	catDependent:       "dependent",
	catWideband:        "wideband",
	catSa:              "supplemental activation",
	catMsa:             "multi state activation",
	catAccurateMass:    "accurate mass",
	catUltra:           "ultra",
	catSectorScan:      "sector scan",
	catLock:            "lock",
	catMultiplex:       "multiplex",
	catMpd:             "mpd",
	catEcd:             "ecd",
	catFreeRegion:      "free region",
}
