package stream

import (
	"errors"
	"strconv"
	"strings"
)

// RangeRequest is a parsed single byte range, end-inclusive. End is -1 when the header
// leaves it open ("bytes=500-").
type RangeRequest struct {
	Start int64
	End   int64
}

var errMalformedRange = errors.New("malformed range header")

// ParseRange parses "bytes=<start>-[<end>]". Suffix ranges and multi-range sets are
// rejected: the start offset is required and exactly one range is accepted.
func ParseRange(header string) (RangeRequest, error) {
	h := strings.TrimSpace(header)
	unit, rangeSet, ok := strings.Cut(h, "=")
	if !ok || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return RangeRequest{}, errMalformedRange
	}
	rangeSet = strings.TrimSpace(rangeSet)
	if strings.Contains(rangeSet, ",") {
		return RangeRequest{}, errMalformedRange
	}
	startStr, endStr, ok := strings.Cut(rangeSet, "-")
	if !ok || startStr == "" {
		return RangeRequest{}, errMalformedRange
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return RangeRequest{}, err
	}
	r := RangeRequest{Start: start, End: -1}
	if endStr != "" {
		end, err := parseOffset(endStr)
		if err != nil {
			return RangeRequest{}, err
		}
		r.End = end
	}
	return r, nil
}

func parseOffset(s string) (int64, error) {
	// ParseInt would accept a leading sign
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errMalformedRange
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errMalformedRange
	}
	return n, nil
}

// Resolve bounds the range against an object of the given size.
func (r RangeRequest) Resolve(size int64) (start, end int64, ok bool) {
	end = r.End
	if end < 0 {
		end = size - 1
	}
	if r.Start < 0 || r.Start > end || end >= size {
		return 0, 0, false
	}
	return r.Start, end, true
}
