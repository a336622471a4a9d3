package structs

// ObjectRef is a reference to a unique job & version.
//
// A set of ID, ETag pins the exact object and version we're referring to;
// updates given a stale ETag alter nothing.
type ObjectRef struct {
	// ID is the unique identifier for this object.
	ID string `json:"id"`

	// ETag is the version of this object.
	ETag string `json:"etag"`
}

// NewObjectRef creates a new ObjectRef.
func NewObjectRef(id, etag string) *ObjectRef {
	return &ObjectRef{ID: id, ETag: etag}
}
