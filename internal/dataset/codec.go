package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rojanmagar2001/reeltally/internal/domain"
)

// Codec turns a Dataset into the single stored value and back.
type Codec interface {
	Name() string
	Marshal(d domain.Dataset) ([]byte, error)
	Unmarshal(b []byte) (domain.Dataset, error)
}

func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return MsgPack{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(d domain.Dataset) ([]byte, error) {
	if d == nil {
		d = domain.Dataset{}
	}
	return json.Marshal(d)
}

func (JSON) Unmarshal(b []byte) (domain.Dataset, error) {
	var d domain.Dataset
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

type MsgPack struct{}

func (MsgPack) Name() string { return "msgpack" }

func (MsgPack) Marshal(d domain.Dataset) ([]byte, error) {
	if d == nil {
		d = domain.Dataset{}
	}
	return msgpack.Marshal(d)
}

func (MsgPack) Unmarshal(b []byte) (domain.Dataset, error) {
	var d domain.Dataset
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}
