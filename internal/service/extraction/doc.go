// Package extraction implements the schema-first, regex-driven extractor:
// from an email body plus concatenated attachment text, it produces an
// ExtractedDocumentData bundling booking/BL/container
// identifiers, vessel/voyage, POL/POD, cutoffs, and (for SI/HBL documents)
// party blocks. AI extraction is optional and deprecated; this default
// implementation never requires an LLM. Extraction never fails outright —
// a sub-extractor that cannot find a field simply leaves it nil, and the
// pipeline proceeds with whatever was found.
package extraction
