package rawfile

import (
	"errors"
	"strconv"
	"strings"
)

// ParseFilter parses a scan filter string into a ScanEvent. The parser
// never partially commits; on any grammar or semantic violation the
// returned event is nil and the error wraps ErrBadFilter.
func ParseFilter(s string) (*ScanEvent, error) {
	tokens, err := tokeniseFilter(s)
	if err != nil {
		return nil, err
	}

	p := &filterParser{event: NewScanEvent()}

	for _, token := range tokens {
		err = p.consume(token)
		if err != nil {
			return nil, err
		}
	}

	err = p.finalise()
	if err != nil {
		return nil, err
	}

	return p.event, nil
}

type simEnergy struct {
	value float64
	set   bool
}

type filterParser struct {
	event *ScanEvent
	seen  [catCount]bool

	sf_values    []float64
	cv_values    []float64
	sim_energies []simEnergy

	// primary (non-multiple) reaction phrases consumed so far
	nphrases int
}

func badFilter(detail string) error {
	return errors.Join(ErrBadFilter, errors.New(detail))
}

// tokeniseFilter splits the filter into whitespace separated tokens,
// keeping "{...}" and "[...]" phrases intact.
func tokeniseFilter(s string) ([]string, error) {
	var tokens []string

	i := 0
	n := len(s)
	for i < n {
		switch {
		case s[i] == ' ' || s[i] == '\t':
			i++
		case s[i] == '{' || s[i] == '[':
			closer := byte('}')
			if s[i] == '[' {
				closer = ']'
			}
			end := strings.IndexByte(s[i:], closer)
			if end < 0 {
				return nil, badFilter("unterminated " + string(s[i]))
			}
			tokens = append(tokens, s[i:i+end+1])
			i += end + 1
		default:
			end := strings.IndexAny(s[i:], " \t[{")
			if end < 0 {
				end = n - i
			}
			tokens = append(tokens, s[i:i+end])
			i += end
		}
	}

	return tokens, nil
}

// markSeen refuses to set the same category twice.
func (p *filterParser) markSeen(cat tokenCategory) error {
	if p.seen[cat] {
		return errors.Join(ErrBadFilter, ErrDuplicateToken,
			errors.New(tokenCategoryNames[cat]))
	}
	p.seen[cat] = true
	return nil
}

func (p *filterParser) consume(token string) error {
	switch {
	case token[0] == '{':
		return p.consumeSegScan(token)
	case token[0] == '[':
		return p.consumeMassRanges(token)
	}

	negated := false
	body := token
	if body[0] == '!' {
		negated = true
		body = body[1:]
		if body == "" {
			return badFilter("bare '!'")
		}
	}

	name := body
	value := ""
	if eq := strings.IndexByte(body, '='); eq >= 0 {
		name = body[:eq]
		value = body[eq+1:]
	}

	// whole tokens take precedence over single letters
	if def, ok := namedTokens[strings.ToLower(name)]; ok {
		return p.consumeNamed(def, name, value, negated)
	}

	// msN / msNd parse structurally
	if order, dependent, ok := parseMsOrderToken(strings.ToLower(body)); ok {
		if err := p.markSeen(catMsOrder); err != nil {
			return err
		}
		p.event.Ms_order = order
		if dependent {
			if err := p.markSeen(catDependent); err != nil {
				return err
			}
			p.event.Dependent = TRI_ON
		}
		return nil
	}

	// reaction phrases follow the ms order token
	if body[0] >= '0' && body[0] <= '9' || body[0] == '.' {
		if negated || value != "" {
			return badFilter("malformed reaction phrase: " + token)
		}
		return p.consumeReactionPhrase(body)
	}

	// single letter flags last
	if len(body) == 1 {
		return p.consumeLetter(body[0], negated)
	}

	return badFilter("unknown token: " + token)
}

// parseMsOrderToken recognises ms2..ms15 with an optional trailing 'd'
// marking the filter dependent-only.
func parseMsOrderToken(token string) (MsOrder, bool, bool) {
	if !strings.HasPrefix(token, "ms") {
		return 0, false, false
	}

	digits := token[2:]
	dependent := false
	if strings.HasSuffix(digits, "d") {
		dependent = true
		digits = digits[:len(digits)-1]
	}
	if digits == "" {
		return 0, false, false
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 2 || n > int(MS_ORDER_MAX) {
		return 0, false, false
	}

	return MsOrder(n), dependent, true
}

func (p *filterParser) consumeNamed(def tokenDef, name, value string, negated bool) error {
	if negated && !def.negatable {
		return badFilter("'!' not legal on " + name)
	}
	if value != "" && !def.takes_value {
		return badFilter("value not legal on " + name)
	}
	if err := p.markSeen(def.category); err != nil {
		return err
	}

	e := p.event
	tri := TRI_ON
	if negated {
		tri = TRI_OFF
	}

	switch def.category {
	case catAnalyser:
		e.Analyser = MassAnalyser(def.value)
	case catPolarity:
		e.Polarity = Polarity(def.value)
	case catDataType:
		e.Scan_data_type = ScanDataType(def.value)
	case catIonization:
		e.Ionization_mode = IonizationMode(def.value)
	case catScanMode:
		e.Scan_mode = ScanMode(def.value)
	case catMsOrder:
		e.Ms_order = MsOrder(def.value)
	case catSectorScan:
		e.Sector_scan = SectorScan(def.value)
	case catFreeRegion:
		e.Free_region = FreeRegion(def.value)
	case catAccurateMass:
		if negated {
			e.Accurate_mass = ACCURATE_MASS_OFF
		} else {
			e.Accurate_mass = AccurateMass(def.value)
		}
	case catCorona:
		e.Corona = tri
	case catPhotoIonization:
		e.Photo_ionization = tri
	case catTurbo:
		e.Turbo_scan = tri
	case catEnhanced:
		e.Enhanced = tri
	case catParamA:
		e.Param_a = tri
	case catParamB:
		e.Param_b = tri
	case catParamF:
		e.Param_f = tri
	case catSps:
		e.Sps_multi_notch = tri
	case catParamR:
		e.Param_r = tri
	case catParamV:
		e.Param_v = tri
	case catDependent:
		e.Dependent = tri
	case catWideband:
		e.Wideband = tri
	case catSa:
		e.Supplemental_activation = tri
	case catMsa:
		e.Multi_state_activation = tri
	case catUltra:
		e.Ultra = tri
	case catLock:
		e.Lock = tri
	case catMultiplex:
		e.Multiplex = tri

	case catSid:
		return p.consumeVoltage(value, negated,
			&e.Source_fragmentation, &e.Source_fragmentation_type, &p.sf_values)
	case catCv:
		return p.consumeVoltage(value, negated,
			&e.Compensation_voltage, &e.Compensation_voltage_type, &p.cv_values)

	case catDetector:
		if negated {
			e.Detector_state = TRI_OFF
			return nil
		}
		e.Detector_state = TRI_ON
		if value != "" {
			v, err := parseFilterFloat(value)
			if err != nil {
				return err
			}
			e.Detector_value = v
		}

	case catMpd:
		if negated {
			e.Mpd_type = TRI_OFF
			return nil
		}
		e.Mpd_type = TRI_ON
		if value != "" {
			v, err := parseFilterFloat(value)
			if err != nil {
				return err
			}
			e.Mpd_value = v
		}
	case catEcd:
		if negated {
			e.Ecd_type = TRI_OFF
			return nil
		}
		e.Ecd_type = TRI_ON
		if value != "" {
			v, err := parseFilterFloat(value)
			if err != nil {
				return err
			}
			e.Ecd_value = v
		}

	default:
		return badFilter("unhandled token: " + name)
	}

	return nil
}

// consumeVoltage handles the shared sid / cv grammar: bare, "=V",
// "=V1-V2" (ramp), or negated.
func (p *filterParser) consumeVoltage(value string, negated bool,
	flag *TriState, vtype *VoltageType, values *[]float64) error {

	if negated {
		*flag = TRI_OFF
		*vtype = VOLTAGE_NONE
		return nil
	}

	*flag = TRI_ON

	if value == "" {
		*vtype = VOLTAGE_NONE
		return nil
	}

	parts := splitRampValue(value)
	switch len(parts) {
	case 1:
		v, err := parseFilterFloat(parts[0])
		if err != nil {
			return err
		}
		*vtype = VOLTAGE_SINGLE
		*values = append(*values, v)
	case 2:
		v1, err := parseFilterFloat(parts[0])
		if err != nil {
			return err
		}
		v2, err := parseFilterFloat(parts[1])
		if err != nil {
			return err
		}
		*vtype = VOLTAGE_RAMP
		*values = append(*values, v1, v2)
	default:
		return badFilter("malformed voltage value: " + value)
	}

	return nil
}

// splitRampValue splits "V1-V2" on the separating dash, keeping a leading
// sign with its number.
func splitRampValue(value string) []string {
	for i := 1; i < len(value); i++ {
		if value[i] == '-' && value[i-1] != 'e' && value[i-1] != 'E' {
			return []string{value[:i], value[i+1:]}
		}
	}
	return []string{value}
}

func parseFilterFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, badFilter("malformed number: " + s)
	}
	return v, nil
}

func (p *filterParser) consumeLetter(letter byte, negated bool) error {
	if bit, ok := lowerLetterBit[letter]; ok {
		if p.event.Lower_case_applied&(1<<bit) != 0 {
			return errors.Join(ErrBadFilter, ErrDuplicateToken,
				errors.New("letter "+string(letter)))
		}
		p.event.Lower_case_applied |= 1 << bit
		if !negated {
			p.event.Lower_case_flags |= 1 << bit
		}
		return nil
	}

	if bit, ok := upperLetterBit[letter]; ok {
		if p.event.Upper_case_applied&(1<<bit) != 0 {
			return errors.Join(ErrBadFilter, ErrDuplicateToken,
				errors.New("letter "+string(letter)))
		}
		p.event.Upper_case_applied |= 1 << bit
		if !negated {
			p.event.Upper_case_flags |= 1 << bit
		}
		return nil
	}

	return badFilter("unknown letter flag: " + string(letter))
}

func (p *filterParser) consumeSegScan(token string) error {
	if p.event.Scan_type_index != -1 {
		return errors.Join(ErrBadFilter, ErrDuplicateToken, errors.New("segscan"))
	}
	if token[len(token)-1] != '}' {
		return badFilter("malformed segscan: " + token)
	}

	parts := strings.Split(token[1:len(token)-1], ",")
	if len(parts) != 2 {
		return badFilter("malformed segscan: " + token)
	}

	seg, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	evt, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return badFilter("malformed segscan: " + token)
	}

	p.event.Scan_type_index = int32(int16(seg))<<16 | int32(uint16(evt))
	return nil
}

func (p *filterParser) consumeMassRanges(token string) error {
	if len(p.event.Mass_ranges) != 0 {
		return errors.Join(ErrBadFilter, ErrDuplicateToken, errors.New("mass ranges"))
	}
	if token[len(token)-1] != ']' {
		return badFilter("malformed mass ranges: " + token)
	}

	body := strings.TrimSpace(token[1 : len(token)-1])
	if body == "" {
		return nil
	}

	for _, phrase := range strings.Split(body, ",") {
		phrase = strings.TrimSpace(phrase)

		energy := simEnergy{}
		if at := strings.IndexByte(phrase, '@'); at >= 0 {
			v, err := parseFilterFloat(phrase[at+1:])
			if err != nil {
				return err
			}
			energy = simEnergy{value: v, set: true}
			phrase = phrase[:at]
		}

		var r MassRange
		parts := splitRampValue(phrase)
		switch len(parts) {
		case 1:
			v, err := parseFilterFloat(parts[0])
			if err != nil {
				return err
			}
			r = MassRange{Low: v, High: v}
		case 2:
			low, err := parseFilterFloat(parts[0])
			if err != nil {
				return err
			}
			high, err := parseFilterFloat(parts[1])
			if err != nil {
				return err
			}
			r = MassRange{Low: low, High: high}
		}
		r.Normalise()

		p.event.Mass_ranges = append(p.event.Mass_ranges, r)
		p.sim_energies = append(p.sim_energies, energy)
	}

	return nil
}

// consumeReactionPhrase parses mass@activation[energy][@activation[energy]...].
// The first activation becomes the primary reaction; each additional one
// appends a multiple-activation marker linked to it.
func (p *filterParser) consumeReactionPhrase(phrase string) error {
	if p.event.Ms_order < MS_ORDER_MS2 {
		return badFilter("reaction phrase outside msn scan: " + phrase)
	}

	at := strings.IndexByte(phrase, '@')
	massText := phrase
	if at >= 0 {
		massText = phrase[:at]
	}

	mass, err := parseFilterFloat(massText)
	if err != nil {
		return err
	}

	p.nphrases++
	if p.nphrases > int(p.event.Ms_order)-1 {
		return badFilter("more reaction phrases than the ms order admits")
	}

	if at < 0 {
		p.event.Reactions = append(p.event.Reactions, Reaction{
			Precursor_mz: mass,
			Activation:   ACTIVATION_ANY,
		})
		return nil
	}

	rest := phrase[at+1:]
	first := true
	for rest != "" {
		var step string
		if next := strings.IndexByte(rest, '@'); next >= 0 {
			step = rest[:next]
			rest = rest[next+1:]
		} else {
			step = rest
			rest = ""
		}

		activation, energyText, err := splitActivation(step)
		if err != nil {
			return err
		}

		reaction := Reaction{
			Precursor_mz: mass,
			Activation:   activation,
			Is_multiple:  !first,
		}
		if energyText != "" {
			energy, err := parseFilterFloat(energyText)
			if err != nil {
				return err
			}
			reaction.Collision_energy = energy
			reaction.Energy_valid = true
		}

		p.event.Reactions = append(p.event.Reactions, reaction)
		first = false
	}

	return nil
}

// splitActivation peels the activation code off the front of one reaction
// step, leaving the optional energy digits.
func splitActivation(step string) (Activation, string, error) {
	end := 0
	for end < len(step) && !(step[end] >= '0' && step[end] <= '9') && step[end] != '.' && step[end] != '-' {
		end++
	}

	code := step[:end]
	activation, ok := InvActivationNames[code]
	if !ok {
		// mode letters keep their case; everything else is lower in the
		// table already
		activation, ok = InvActivationNames[strings.ToLower(code)]
	}
	if !ok {
		return 0, "", badFilter("unknown activation: " + code)
	}

	return activation, step[end:], nil
}

// finalise runs the validation pass and assembles the flat voltage buffer.
func (p *filterParser) finalise() error {
	e := p.event

	// duplicate mass ranges are a grammar violation
	for i := range e.Mass_ranges {
		for j := i + 1; j < len(e.Mass_ranges); j++ {
			if e.Mass_ranges[i] == e.Mass_ranges[j] {
				return badFilter("duplicate mass range")
			}
		}
	}

	simEnergies := false
	for _, energy := range p.sim_energies {
		if energy.set {
			simEnergies = true
		}
	}

	if simEnergies {
		// per-range energies are only legal in SIM mode, and collide with
		// an explicit single/ramp source fragmentation selection
		if e.Scan_mode != SCAN_MODE_SIM {
			return badFilter("per-range energies outside SIM mode")
		}
		if e.Source_fragmentation_type == VOLTAGE_SINGLE || e.Source_fragmentation_type == VOLTAGE_RAMP {
			return badFilter("per-range energies with explicit source fragmentation")
		}
		e.Source_fragmentation = TRI_ON
		e.Source_fragmentation_type = VOLTAGE_SIM
	}

	switch e.Scan_mode {
	case SCAN_MODE_SIM, SCAN_MODE_Q1MS, SCAN_MODE_Q3MS:
		if e.Ms_order == MS_ORDER_ANY {
			e.Ms_order = MS_ORDER_MS1
		}
	}

	if e.Ms_order >= MS_ORDER_MS2 && len(e.Reactions) == 0 {
		return badFilter("msn scan without reactions")
	}

	// flat buffer: source fragmentation values, compensation voltage
	// values, then one SIM slot per mass range
	e.Source_fragmentations = append(e.Source_fragmentations, p.sf_values...)
	e.Source_fragmentations = append(e.Source_fragmentations, p.cv_values...)

	if e.Source_fragmentation_type == VOLTAGE_SIM || e.Compensation_voltage_type == VOLTAGE_SIM {
		// un-set slots fold to zero; populating the source CID path leaves
		// the CV validity byte cleared
		for i := range e.Mass_ranges {
			v := 0.0
			if i < len(p.sim_energies) && p.sim_energies[i].set {
				v = p.sim_energies[i].value
			}
			e.Source_fragmentations = append(e.Source_fragmentations, v)
		}
		e.sim_cv_valid = 0
	}

	return nil
}
