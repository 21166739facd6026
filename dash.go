// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rmask

import "math"

// Dash defines a dash pattern for outlines such as the open lasso path.
// A dash pattern consists of alternating dash and gap lengths.
// For example, [5, 3] creates a pattern of 5 units dash, 3 units gap.
type Dash struct {
	// Array contains alternating dash/gap lengths.
	// If the array has an odd number of elements, it is logically duplicated
	// to create an even-length pattern (e.g., [5] becomes [5, 5]).
	Array []float64

	// Offset is the starting offset into the pattern.
	Offset float64
}

// NewDash creates a dash pattern from alternating dash/gap lengths.
// Returns nil if no lengths are provided or all lengths are zero.
func NewDash(lengths ...float64) *Dash {
	if len(lengths) == 0 {
		return nil
	}

	allZeroOrNeg := true
	for _, l := range lengths {
		if l > 0 {
			allZeroOrNeg = false
			break
		}
	}
	if allZeroOrNeg {
		return nil
	}

	normalized := make([]float64, len(lengths))
	for i, l := range lengths {
		normalized[i] = math.Abs(l)
	}

	return &Dash{Array: normalized}
}

// PatternLength returns the total length of one complete pattern cycle.
// For odd-length arrays, this includes the duplicated pattern.
func (d *Dash) PatternLength() float64 {
	if d == nil || len(d.Array) == 0 {
		return 0
	}

	var total float64
	for _, l := range d.Array {
		total += l
	}
	if len(d.Array)%2 != 0 {
		total *= 2
	}
	return total
}

// NormalizedOffset returns the offset normalized to be within one pattern cycle.
func (d *Dash) NormalizedOffset() float64 {
	if d == nil {
		return 0
	}
	patternLen := d.PatternLength()
	if patternLen <= 0 {
		return 0
	}
	offset := math.Mod(d.Offset, patternLen)
	if offset < 0 {
		offset += patternLen
	}
	return offset
}

// effectiveArray returns the array with odd-length arrays duplicated.
func (d *Dash) effectiveArray() []float64 {
	if d == nil || len(d.Array) == 0 {
		return nil
	}
	if len(d.Array)%2 == 0 {
		return d.Array
	}
	result := make([]float64, len(d.Array)*2)
	copy(result, d.Array)
	copy(result[len(d.Array):], d.Array)
	return result
}

// Segment is one visible piece of a dashed polyline.
type Segment struct {
	From, To Point
}

// Split walks a polyline and returns its visible dash segments. The
// pattern runs continuously across vertices. A nil Dash returns every
// edge of the polyline as one solid segment.
func (d *Dash) Split(points []Point) []Segment {
	if len(points) < 2 {
		return nil
	}
	arr := d.effectiveArray()
	if arr == nil || d.PatternLength() <= 0 {
		out := make([]Segment, 0, len(points)-1)
		for i := 0; i+1 < len(points); i++ {
			out = append(out, Segment{From: points[i], To: points[i+1]})
		}
		return out
	}

	// Position the pattern at the offset.
	idx := 0
	remain := arr[0]
	for off := d.NormalizedOffset(); off > 0; {
		if off < remain {
			remain -= off
			break
		}
		off -= remain
		idx = (idx + 1) % len(arr)
		remain = arr[idx]
	}

	var out []Segment
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		length := a.Distance(b)
		pos := 0.0
		for pos < length {
			step := math.Min(remain, length-pos)
			if idx%2 == 0 && step > 0 {
				out = append(out, Segment{
					From: a.Lerp(b, pos/length),
					To:   a.Lerp(b, (pos+step)/length),
				})
			}
			pos += step
			remain -= step
			if remain <= 0 {
				idx = (idx + 1) % len(arr)
				remain = arr[idx]
			}
		}
	}
	return out
}
