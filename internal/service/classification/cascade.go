package classification

import (
	"strings"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// cascadeInput bundles the text the cascade reasons over.
type cascadeInput struct {
	Subject              string
	Body                 string
	AttachmentFilenames   []string
	AttachmentText        string
	SenderEmail           string
	TrueSenderEmail       string
}

type cascadeResult struct {
	DocumentType domain.DocumentType
	Confidence   int
	Method       domain.ClassificationMethod
}

// classifyDocument runs the cascade in order, returning on the first
// sufficient signal. It never returns an error: an exhausted cascade
// yields (unknown, 0).
func classifyDocument(in cascadeInput) cascadeResult {
	for _, fn := range in.AttachmentFilenames {
		for _, p := range filenamePatterns {
			if p.Regex.MatchString(fn) {
				return cascadeResult{p.DocumentType, p.Confidence, domain.MethodAttachmentFilename}
			}
		}
	}

	if in.AttachmentText != "" {
		upper := strings.ToUpper(in.AttachmentText)
		for _, m := range bodyMarkers {
			if strings.Contains(upper, m.Marker) {
				return cascadeResult{m.DocumentType, m.Confidence, domain.MethodPatternBody}
			}
		}
	}

	for _, p := range subjectPatterns {
		if p.Regex.MatchString(in.Subject) {
			return cascadeResult{p.DocumentType, p.Confidence, domain.MethodSubject}
		}
	}

	lowerBody := strings.ToLower(in.Body)
	for _, k := range bodyKeywordPatterns {
		if strings.Contains(lowerBody, k.Phrase) {
			return cascadeResult{k.DocumentType, k.Confidence, domain.MethodBodyText}
		}
	}

	return cascadeResult{domain.DocUnknown, 0, domain.MethodKeyword}
}

// classifyEmailType runs the independent emailType marker table. Unlike
// classifyDocument, it has no confidence floor for "no match": absent any
// marker, it defaults to correspondence at a low but non-zero confidence.
func classifyEmailType(subject, body string) (domain.EmailType, int) {
	lower := strings.ToLower(subject + " " + body)
	for _, m := range emailTypeMarkers {
		if strings.Contains(lower, m.Phrase) {
			return m.EmailType, 70
		}
	}
	return domain.EmailCorrespondence, 50
}

// senderCategory derives a SenderCategory from sender/true-sender domain
// against the configured (or fallback) carrier domain list, plus small
// hardcoded hints for customs/broker mail.
func senderCategory(senderEmail, trueSenderEmail string, carrierDomains []string, ownDomains map[string]struct{}) domain.SenderCategory {
	candidate := senderEmail
	if trueSenderEmail != "" {
		candidate = trueSenderEmail
	}
	domainPart := domainOf(candidate)
	if domainPart == "" {
		return domain.SenderUnknown
	}

	if _, ok := ownDomains[domainPart]; ok {
		return domain.SenderInternal
	}

	for _, cd := range carrierDomains {
		if strings.Contains(domainPart, strings.ToLower(cd)) {
			return domain.SenderCarrier
		}
	}
	for _, cd := range hardcodedCarrierDomains {
		if strings.Contains(domainPart, cd) {
			return domain.SenderCarrier
		}
	}
	for _, hint := range customsBrokerDomainHints {
		if strings.Contains(domainPart, hint) {
			return domain.SenderBroker
		}
	}

	return domain.SenderCustomer
}

func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// isCarrierAttested reports whether the sender (or true-sender) domain
// matches a configured or hardcoded carrier domain, or the display name
// names a hardcoded carrier. subject and body are accepted but not
// consulted. Its only caller is Service.IsCarrierAttested, which feeds
// Linking's shipment-creation gate.
func isCarrierAttested(senderEmail, trueSenderEmail, displayName, subject, body string, carrierDomains []string) bool {
	candidate := senderEmail
	if trueSenderEmail != "" {
		candidate = trueSenderEmail
	}
	d := domainOf(candidate)
	for _, cd := range append(append([]string{}, carrierDomains...), hardcodedCarrierDomains...) {
		if cd != "" && strings.Contains(d, strings.ToLower(cd)) {
			return true
		}
	}

	lowerDisplay := strings.ToLower(displayName)
	for _, cd := range hardcodedCarrierDomains {
		name := strings.TrimSuffix(cd, ".com")
		if strings.Contains(lowerDisplay, name) {
			return true
		}
	}

	return false
}
