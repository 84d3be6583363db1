// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

// CRCStep folds one input byte into the running checksum accumulator.
func CRCStep(x byte, acc byte) byte {
	n := int(x) + int(acc)
	c := ((n & 0x7F) << 2) | ((n & 0x180) >> 7)
	if c > 0xFF {
		c -= 0xFF
	}
	return byte(c)
}

// CalculateCRC computes the checksum of a frame. The byte at OffsetCRC holds
// the checksum itself and is skipped.
func CalculateCRC(frame []byte) byte {
	var crc byte
	for i, b := range frame {
		if i == OffsetCRC {
			continue
		}
		crc = CRCStep(b, crc)
	}
	return crc
}

// SealFrame writes the checksum of frame into its CRC field.
func SealFrame(frame []byte) {
	if len(frame) > OffsetCRC {
		frame[OffsetCRC] = CalculateCRC(frame)
	}
}
