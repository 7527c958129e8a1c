package extraction

import "regexp"

// fieldPattern is one carrier-aware regex for a single entity, applied
// over the full concatenated text. The first capture group is the
// extracted value.
type fieldPattern struct {
	Regex       *regexp.Regexp
	Carrier     string
}

// bookingPatterns recognizes carrier-specific booking number shapes.
var bookingPatterns = []fieldPattern{
	{regexp.MustCompile(`\b(26\d{7})\b`), "MAEU"},           // 9-digit Maersk starting with 26
	{regexp.MustCompile(`\b(HLCU\d{7,10})\b`), "HLCU"},
	{regexp.MustCompile(`\bHL-?(\d{8})\b`), "HLCU"},
	{regexp.MustCompile(`\b((?:CEI|AMC|CAD)\d{7})\b`), "CMDU"}, // CMA CGM
	{regexp.MustCompile(`\b(COSU\d{10})\b`), "COSU"},
	{regexp.MustCompile(`\b(MAEU\d{9})\b`), "MAEU"},
	{regexp.MustCompile(`(?i)booking\s*(?:no\.?|number|confirmation)?\s*:?\s*([A-Z0-9]{6,15})`), ""},
}

var mblPatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)\bm\.?b\.?l\.?\s*(?:no\.?|number)?\s*:?\s*([A-Z0-9]{6,15})`), ""},
	{regexp.MustCompile(`(?i)master\s*b(?:ill)?/?l\s*:?\s*([A-Z0-9]{6,15})`), ""},
}

var hblPatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)\bh\.?b\.?l\.?\s*(?:no\.?|number)?\s*:?\s*([A-Z0-9]{6,15})`), ""},
	{regexp.MustCompile(`(?i)house\s*b(?:ill)?/?l\s*:?\s*([A-Z0-9]{6,15})`), ""},
	{regexp.MustCompile(`\b(SE\d{10})\b`), ""},
}

var containerPatterns = []fieldPattern{
	{regexp.MustCompile(`\b([A-Z]{4}\d{7})\b`), ""}, // ISO 6346 container number
}

var vesselVoyagePatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)vessel\s*(?:name)?\s*:?\s*([A-Z][A-Za-z0-9 .\-]{2,40})`), ""},
}
var voyagePatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)voyage\s*(?:no\.?|number)?\s*:?\s*([A-Z0-9]{2,10})`), ""},
}

var polPatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)port\s*of\s*loading\s*:?\s*([A-Za-z ,.'\-]{2,40})`), ""},
}
var podPatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)port\s*of\s*discharge\s*:?\s*([A-Za-z ,.'\-]{2,40})`), ""},
}

// locodePattern matches a 5-character UN/LOCODE, e.g. USSAV, INNSA.
var locodePattern = regexp.MustCompile(`\b([A-Z]{2}[A-Z0-9]{3})\b`)

// subjectLocodePattern matches five-letter all-caps tokens in a carrier
// subject like "HL-22970937 USSAV RESILIENT"; the extractor takes the last
// such token (here USSAV) as the LOCODE.
var subjectLocodePattern = regexp.MustCompile(`\b([A-Z]{5})\b`)

// subjectBookingPattern is the subject-line regex fallback for booking
// numbers when the body missed it.
var subjectBookingPattern = regexp.MustCompile(`\b(\d{7,10})\b`)

// dealIDPattern matches the Intoglo Deal ID shape.
var dealIDPattern = regexp.MustCompile(`\b([A-Z]{5,7}\d{8,12}_I)\b`)

// customsEntryPattern matches a US customs entry number: 3-digit filer code,
// 7-digit entry number, 1-digit check digit.
var customsEntryPattern = regexp.MustCompile(`\b(\d{3}-\d{7}-\d)\b`)

// Cutoff/date labels matched against PDF/body text lines for the
// key-value table sub-extractor.
var (
	siCutoffLabel    = regexp.MustCompile(`(?i)si\s*clos(?:ing|e)|si\s*cut-?off|shipping\s*instructions?\s*cut-?off`)
	vgmCutoffLabel   = regexp.MustCompile(`(?i)vgm\s*cut-?off`)
	cargoCutoffLabel = regexp.MustCompile(`(?i)(fcl\s*delivery\s*cut-?off|cargo\s*cut-?off)`)
	gateCutoffLabel  = regexp.MustCompile(`(?i)gate\s*(-in)?\s*cut-?off`)
	docCutoffLabel   = regexp.MustCompile(`(?i)doc(?:umentation)?\s*cut-?off`)
	etdLabel         = regexp.MustCompile(`(?i)\betd\b`)
	etaLabel         = regexp.MustCompile(`(?i)\beta\b`)
)

// dateValuePattern extracts the date/time value following a label on the
// same line, e.g. "SI closing: 25-Dec-2025 10:00".
var dateValuePattern = regexp.MustCompile(`:?\s*(\d{1,2}[-/][A-Za-z0-9]{2,9}[-/]\d{2,4}(?:[ T]\d{1,2}:\d{2})?)`)

func firstMatch(patterns []fieldPattern, text string) string {
	for _, p := range patterns {
		if m := p.Regex.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
