package domain

import "encoding/json"

// CouponStatus describes how a CouponInfo came to be.
type CouponStatus int

const (
	// CouponAbsent means enrichment was skipped or yielded nothing.
	CouponAbsent CouponStatus = iota

	// CouponExtracted means the model returned structured data.
	CouponExtracted

	// CouponUnparseable means the model answered with non-JSON output.
	CouponUnparseable

	// CouponFailed means the inference call failed after retries.
	CouponFailed
)

// Serialized markers for error states.
const (
	CouponMarkerUnparseable = "error: unparseable"
	CouponMarkerFailed      = "error: extraction failed"
)

// String returns a short status label.
func (s CouponStatus) String() string {
	switch s {
	case CouponExtracted:
		return "extracted"
	case CouponUnparseable:
		return "unparseable"
	case CouponFailed:
		return "failed"
	default:
		return "absent"
	}
}

// CouponInfo is the enrichment result attached to a file.
type CouponInfo struct {
	Status CouponStatus

	// Value holds decoded JSON (maps, slices, scalars) when Status
	// is CouponExtracted.
	Value any

	// Raw is the model text the value was parsed from, kept for
	// diagnostics on unparseable responses.
	Raw string
}

// AbsentCoupon returns an empty result.
func AbsentCoupon() CouponInfo {
	return CouponInfo{Status: CouponAbsent}
}

// ExtractedCoupon wraps a decoded value. A nil value is absent.
func ExtractedCoupon(value any, raw string) CouponInfo {
	if value == nil {
		return CouponInfo{Status: CouponAbsent, Raw: raw}
	}
	return CouponInfo{Status: CouponExtracted, Value: value, Raw: raw}
}

// UnparseableCoupon marks output that could not be decoded.
func UnparseableCoupon(raw string) CouponInfo {
	return CouponInfo{Status: CouponUnparseable, Raw: raw}
}

// FailedCoupon marks an inference call that failed.
func FailedCoupon() CouponInfo {
	return CouponInfo{Status: CouponFailed}
}

// IsError reports whether the result carries an error marker.
func (c CouponInfo) IsError() bool {
	return c.Status == CouponUnparseable || c.Status == CouponFailed
}

// Err returns the sentinel matching an error status, or nil.
func (c CouponInfo) Err() error {
	switch c.Status {
	case CouponUnparseable:
		return ErrUnparseable
	case CouponFailed:
		return ErrExtractionFailed
	default:
		return nil
	}
}

// Serialize renders the value for a sink cell.
func (c CouponInfo) Serialize() string {
	switch c.Status {
	case CouponExtracted:
		data, err := json.MarshalIndent(c.Value, "", "  ")
		if err != nil {
			return CouponMarkerUnparseable
		}
		return string(data)
	case CouponUnparseable:
		return CouponMarkerUnparseable
	case CouponFailed:
		return CouponMarkerFailed
	default:
		return ""
	}
}

// ParseCouponCell is the inverse of Serialize, used when rows are
// read back from the local spool.
func ParseCouponCell(cell string) CouponInfo {
	switch cell {
	case "":
		return AbsentCoupon()
	case CouponMarkerUnparseable:
		return UnparseableCoupon("")
	case CouponMarkerFailed:
		return FailedCoupon()
	}

	var value any
	if err := json.Unmarshal([]byte(cell), &value); err != nil {
		return UnparseableCoupon(cell)
	}
	return ExtractedCoupon(value, cell)
}
