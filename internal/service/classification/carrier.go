package classification

import "strings"

// domainToCarrierCode maps a carrier's hardcoded fallback domain to the
// SCAC-style carrier code used throughout extraction's carrier-aware
// field regexes and the shipment's CarrierCode field.
var domainToCarrierCode = map[string]string{
	"maersk.com":         "MAEU",
	"hlag.com":           "HLCU",
	"cma-cgm.com":        "CMDU",
	"msc.com":            "MSCU",
	"evergreen-line.com": "EGLV",
	"oocl.com":           "OOLU",
	"cosco-shipping.com": "COSU",
	"yangming.com":       "YMLU",
	"one-line.com":       "ONEY",
	"zim.com":            "ZIMU",
	"hmm21.com":          "HDMU",
	"pilship.com":        "PIL",
	"wanhai.com":         "WHL",
	"sitcline.com":       "SITC",
}

// bodyCarrierMarkers is a carrier-agnostic fallback for when the sender
// domain doesn't resolve (e.g. a forwarded or aggregator mailbox) but the
// body text names the carrier explicitly.
var bodyCarrierMarkers = []struct {
	Marker string
	Code   string
}{
	{"maersk", "MAEU"},
	{"hapag-lloyd", "HLCU"},
	{"hapag lloyd", "HLCU"},
	{"cma cgm", "CMDU"},
	{"mediterranean shipping", "MSCU"},
	{"evergreen", "EGLV"},
	{"oocl", "OOLU"},
	{"cosco", "COSU"},
	{"yang ming", "YMLU"},
	{"ocean network express", "ONEY"},
	{"zim integrated", "ZIMU"},
	{"hyundai merchant marine", "HDMU"},
	{"pacific international lines", "PIL"},
	{"wan hai", "WHL"},
	{"sitc", "SITC"},
}

// DetectCarrierCode resolves the email's originating carrier code from the
// sender/true-sender domain first, falling back to a body-text name
// search. It returns "" when neither signal matches.
func DetectCarrierCode(senderEmail, trueSenderEmail, body string) string {
	candidate := senderEmail
	if trueSenderEmail != "" {
		candidate = trueSenderEmail
	}
	if code, ok := domainToCarrierCode[domainOf(candidate)]; ok {
		return code
	}
	lower := strings.ToLower(body)
	for _, m := range bodyCarrierMarkers {
		if strings.Contains(lower, m.Marker) {
			return m.Code
		}
	}
	return ""
}
