// Package textrange locates snippets of text inside a document and splices
// replacements into it.
//
// Snippets usually come from an automated check that quotes the document
// back with small drifts: re-flowed line breaks, doubled spaces, dropped
// emphasis markers, typographic quotes, a trailing ellipsis. Locate tries
// three passes of increasing tolerance and stops at the first hit:
//
//   - PassExact: literal substring search
//   - PassWhitespace: every whitespace run collapsed to one space
//   - PassFuzzy: composed to NFC, lowercased, quotes and dashes unified,
//     everything that is not a letter or digit treated as whitespace
//
// Within a pass the leftmost match wins. Offsets are always reported
// against the original document through a per-byte index map, so the
// returned Range can be handed straight to Replace:
//
//	m, ok := textrange.Locate(doc, "Hallo Welt Test")
//	if ok {
//	    doc = textrange.Replace(doc, m.Range, "Hallo Welt!")
//	}
//
// Ranges are byte offsets into one specific string value. They are
// meaningless after that string is edited.
//
// All functions are pure and safe for concurrent use.
package textrange
