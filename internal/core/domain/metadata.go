package domain

// Field names one of the metadata attributes derived from a file name.
type Field string

// Metadata fields, in the order they appear in output rows.
const (
	FieldDate       Field = "date"
	FieldDealership Field = "dealership"
	FieldVersion    Field = "version"
	FieldCampaign   Field = "campaign"
	FieldRegion     Field = "region"
	FieldModel      Field = "model"
)

// Fields lists every metadata field in output order.
var Fields = []Field{
	FieldDate,
	FieldDealership,
	FieldVersion,
	FieldCampaign,
	FieldRegion,
	FieldModel,
}

// IsValid reports whether f is one of the known metadata fields.
func (f Field) IsValid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// MetadataRecord maps each metadata field to a value or absence.
// Records are immutable; partial records are normal.
type MetadataRecord struct {
	values map[Field]string
}

// NewMetadataRecord copies values into a record. Unknown fields and
// empty strings are dropped.
func NewMetadataRecord(values map[Field]string) MetadataRecord {
	rec := MetadataRecord{values: make(map[Field]string, len(values))}
	for f, v := range values {
		if v == "" || !f.IsValid() {
			continue
		}
		rec.values[f] = v
	}
	return rec
}

// Get returns the field value and whether it is present.
func (r MetadataRecord) Get(f Field) (string, bool) {
	v, ok := r.values[f]
	return v, ok
}

// Value returns the field value, or "" when absent.
func (r MetadataRecord) Value(f Field) string {
	return r.values[f]
}

// Len returns the number of present fields.
func (r MetadataRecord) Len() int {
	return len(r.values)
}

// IsEmpty reports whether no field is present.
func (r MetadataRecord) IsEmpty() bool {
	return len(r.values) == 0
}

// Map returns a copy of the present fields keyed by field name.
func (r MetadataRecord) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for f, v := range r.values {
		out[string(f)] = v
	}
	return out
}
