// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

// Status is the result of checking a candidate frame.
type Status int

const (
	// StatusIncomplete means more bytes are needed before a decision is possible.
	StatusIncomplete Status = iota
	// StatusValidKnown is a complete frame of known length between known addresses.
	StatusValidKnown
	// StatusValidUnknown has a correct checksum but unknown length or addresses.
	StatusValidUnknown
	// StatusCRCError is a complete candidate whose checksum does not match.
	StatusCRCError
)

func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "incomplete"
	case StatusValidKnown:
		return "valid"
	case StatusValidUnknown:
		return "valid-unknown"
	case StatusCRCError:
		return "crc-error"
	default:
		return "invalid"
	}
}

// Verify checks whether buf starts with a frame. For StatusValidKnown the
// returned length is the frame's expected length, which may be shorter than
// buf. For the other complete results it is len(buf).
func Verify(buf []byte, book AddressBook) (Status, int) {
	st, n, _ := verify(buf, book)
	return st, n
}

// verify also reports whether the candidate was a frame of known length
// between known addresses.
func verify(buf []byte, book AddressBook) (Status, int, bool) {
	if len(buf) < MinFrameSize {
		return StatusIncomplete, 0, false
	}

	f := Frame(buf)
	expLen := ExpectedLength(f.Info())
	srcKnown := book != nil && book.IsKnownAddress(f.Source())

	// The destination is only decidable once its byte has arrived.
	if expLen != 0 && srcKnown && len(buf) <= OffsetDst {
		return StatusIncomplete, 0, false
	}
	known := srcKnown && book.IsKnownAddress(f.Destination())

	if expLen != 0 && known {
		if len(buf) < expLen {
			return StatusIncomplete, 0, false
		}
		if CalculateCRC(buf[:expLen]) == f.CRC() {
			return StatusValidKnown, expLen, true
		}
		return StatusCRCError, expLen, true
	}

	if CalculateCRC(buf) == f.CRC() {
		return StatusValidUnknown, len(buf), false
	}
	return StatusCRCError, len(buf), false
}

// Scan looks for the first offset after 0 at which a frame starts. At each
// offset the candidate grows until Verify reaches a decision. A start is
// accepted for a known frame, or for a checksum-valid frame of canonical
// length. Scan returns 0 when no offset qualifies.
func Scan(buf []byte, book AddressBook) int {
	for start := 1; start < len(buf); start++ {
		status := StatusIncomplete
		n := 1
		for ; n <= len(buf)-start; n++ {
			status, _ = Verify(buf[start:start+n], book)
			if status != StatusIncomplete {
				break
			}
		}

		if status == StatusValidKnown {
			return start
		}
		if status == StatusValidUnknown && IsCanonicalLength(n) {
			return start
		}
	}
	return 0
}
