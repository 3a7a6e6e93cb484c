package mailbox

import "strconv"

var (
	EmptyID ID
)

// ID is the backend-assigned mailbox identifier. Some backends index
// mailboxes by number, others by an opaque string key; ID carries either
// representation without the caller having to know which.
type ID struct {
	num uint32
	key string
}

func NewIDFromUint(num uint32) ID {
	return ID{
		num: num,
	}
}

func NewIDFromString(key string) ID {
	return ID{
		key: key,
	}
}

func (i ID) IsZero() bool {
	return i.num == 0 && i.key == ""
}

func (i ID) IsUint() bool {
	return i.num > 0
}

func (i ID) IsString() bool {
	return i.key != ""
}

func (i ID) AsUint() uint32 {
	return i.num
}

func (i ID) AsString() string {
	return i.key
}

func (i ID) String() string {
	if i.IsUint() {
		return strconv.FormatUint(uint64(i.num), 10)
	}
	return i.key
}

// MarshalText encodes the ID as its String form. A purely numeric string key
// would be read back as a numeric ID; backends generate non-numeric keys.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID) UnmarshalText(data []byte) error {
	if num, err := strconv.ParseUint(string(data), 10, 32); err == nil {
		*i = NewIDFromUint(uint32(num))
		return nil
	}
	*i = NewIDFromString(string(data))
	return nil
}

func (i ID) GobEncode() ([]byte, error) {
	return i.MarshalText()
}

func (i *ID) GobDecode(data []byte) error {
	return i.UnmarshalText(data)
}
