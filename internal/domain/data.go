package domain

// Visibility controls who can read a data object.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityMember  Visibility = "member"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityMember, VisibilityPrivate:
		return true
	}
	return false
}

// Well-known data keys.
const (
	KeyName          = "name"
	KeyReady         = "ready"
	KeyRelayStarted  = "relay_started"
	KeyRelayJoinCode = "relay_join_code"
)

const (
	ValueTrue  = "true"
	ValueFalse = "false"
)

// DataObject is one string value stored at the presence store.
type DataObject struct {
	Visibility Visibility `json:"visibility"`
	Value      string     `json:"value"`
}

// Data is a string-keyed map of data objects. An empty Value in an update
// removes the key.
type Data map[string]DataObject

func Public(v string) DataObject  { return DataObject{Visibility: VisibilityPublic, Value: v} }
func Members(v string) DataObject { return DataObject{Visibility: VisibilityMember, Value: v} }

// Value returns the raw value for key and whether it was present.
func (d Data) Value(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	obj, ok := d[key]
	if !ok {
		return "", false
	}
	return obj.Value, true
}

// Flag reports whether key is present with the value "true".
func (d Data) Flag(key string) bool {
	v, ok := d.Value(key)
	return ok && v == ValueTrue
}

// Clone returns a deep copy; nil stays nil.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge applies update onto d in place and returns d.
func (d Data) Merge(update Data) Data {
	if d == nil {
		d = make(Data, len(update))
	}
	for k, v := range update {
		if v.Value == "" {
			delete(d, k)
			continue
		}
		d[k] = v
	}
	return d
}

// Visible filters d down to what a reader may see. owner reports whether
// the reader owns the data, member whether the reader shares the room.
func (d Data) Visible(owner, member bool) Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		switch v.Visibility {
		case VisibilityPrivate:
			if !owner {
				continue
			}
		case VisibilityMember:
			if !owner && !member {
				continue
			}
		}
		out[k] = v
	}
	return out
}
