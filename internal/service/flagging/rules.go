package flagging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// replyForwardPrefixes strips one leading reply/forward marker at a time,
// including common locale variants, so repeated application collapses
// "Re: Fwd: RE: Subject" down to "Subject".
var replyForwardPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(re|r|aw|antw|sv|vs)\s*:\s*`),
	regexp.MustCompile(`(?i)^\s*(fw|fwd|tr|wg)\s*:\s*`),
	regexp.MustCompile(`(?i)^\s*\[?\s*(external|externe)\s*\]?\s*:?\s*`),
}

var inReplyToHeaderQuote = regexp.MustCompile(`(?i)^\s*(on .+wrote:|-----original message-----|from:\s*.+\nsent:\s*.+)`)

// forwardedFromLine finds the first "From:" line inside a forwarded
// message body, used to recover trueSenderEmail.
var forwardedFromLine = regexp.MustCompile(`(?im)^\s*from\s*:\s*(?:"?[^"<]*?"?\s*)?<?([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})>?\s*$`)

// businessDocExtensions maps attachment filename extensions recognized as
// business documents, matched after MIME type.
var businessDocExtensions = []string{".pdf", ".xlsx", ".xls", ".docx", ".doc", ".csv", ".xlsm"}

var businessDocMimes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"text/csv",
	"application/vnd.ms-excel.sheet.macroEnabled.12",
}

// signatureImageFilenamePatterns catches common artefacts embedded in
// email signatures or social/logo icons, as opposed to genuine scanned
// business documents sent as images.
var signatureImageFilenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^image00\d\.(png|jpg|jpeg|gif)$`),
	regexp.MustCompile(`(?i)(logo|signature|sig|icon|banner)`),
	regexp.MustCompile(`(?i)^(facebook|twitter|linkedin|instagram|youtube)[-_]?(icon|logo)?\.(png|jpg|jpeg|gif)$`),
	regexp.MustCompile(`(?i)^(image|inline|emblem)[-_]?\d*\.(png|jpg|jpeg|gif)$`),
}

const signatureImageMaxSizeBytes = 500 * 1024

var imageMimePrefix = "image/"

func stripReplyForwardPrefixes(subject string) (clean string, stripped bool) {
	clean = subject
	for {
		before := clean
		for _, re := range replyForwardPrefixes {
			clean = re.ReplaceAllString(clean, "")
		}
		clean = collapseWhitespace(clean)
		if clean == before {
			break
		}
		stripped = true
	}
	return clean, stripped
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func bodyLeadsWithQuotedHeader(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}
	lines := strings.SplitN(trimmed, "\n", 5)
	head := strings.Join(lines, "\n")
	return inReplyToHeaderQuote.MatchString(head)
}

func extractTrueSender(body string) string {
	m := forwardedFromLine.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

func contentHash(cleanSubject, bodyText string) string {
	normalized := strings.ToLower(collapseWhitespace(cleanSubject)) + "\x00" + strings.ToLower(collapseWhitespace(bodyText))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func isBusinessDocument(mimeType, filename string) bool {
	mt := strings.ToLower(mimeType)
	for _, m := range businessDocMimes {
		if mt == m {
			return true
		}
	}
	lower := strings.ToLower(filename)
	for _, ext := range businessDocExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isSignatureImage(mimeType, filename string, sizeBytes int64) bool {
	if !strings.HasPrefix(strings.ToLower(mimeType), imageMimePrefix) {
		return false
	}
	for _, re := range signatureImageFilenamePatterns {
		if re.MatchString(filename) {
			return true
		}
	}
	return sizeBytes > 0 && sizeBytes < signatureImageMaxSizeBytes && isGenericImageFilename(filename)
}

var genericImageFilename = regexp.MustCompile(`(?i)^(img|photo|scan|untitled|unnamed)[-_ ]?\d*\.(png|jpg|jpeg|gif|bmp)$`)

func isGenericImageFilename(filename string) bool {
	return genericImageFilename.MatchString(filename)
}

// signatureImageMaxDimension is the pixel threshold below which an inline
// image is almost certainly a logo/signature/social icon rather than a
// scanned page of a business document.
const signatureImageMaxDimension = 250

// isSmallDecodedImage decodes just the image header (width/height, no pixel
// data) via the standard library's registered decoders plus x/image's
// bmp/tiff/webp formats, and reports whether both dimensions fall under
// signatureImageMaxDimension. False when data doesn't decode as any
// registered image format.
func isSmallDecodedImage(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return cfg.Width > 0 && cfg.Height > 0 && cfg.Width <= signatureImageMaxDimension && cfg.Height <= signatureImageMaxDimension
}
