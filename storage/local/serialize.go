package local

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"
)

func SerializeInt(value int) ([]byte, error) {
	buffer := &bytes.Buffer{}
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(value)
	return buffer.Bytes(), err
}

func DeserializeInt(input []byte) (int, error) {
	output := 0
	decoder := gob.NewDecoder(bytes.NewBuffer(input))
	err := decoder.Decode(&output)
	return output, err
}

func SerializeObject[T any](data *T) ([]byte, error) {
	if data == nil {
		return nil, errors.New("cannot serialize nil object")
	}
	buffer := &bytes.Buffer{}
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(data)
	return buffer.Bytes(), err
}

func DeserializeObject[T any](input []byte) (*T, error) {
	output := new(T)
	decoder := gob.NewDecoder(bytes.NewBuffer(input))
	err := decoder.Decode(&output)
	return output, err
}

// SerializeUid builds a message key. The fixed-width hexadecimal form keeps
// keys in UID order under bbolt's byte-wise key sort.
func SerializeUid(prefix string, uid uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", prefix, uid))
}

func DeserializeUid(prefix string, key []byte) uint64 {
	key = bytes.TrimPrefix(key, []byte(prefix))
	uid, _ := strconv.ParseUint(string(key), 16, 64)
	return uid
}
