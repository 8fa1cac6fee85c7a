package ops

import (
	"encoding/json"
	"fmt"

	"github.com/docreplica/synclog/go/value"
)

// pathSegDTO is the wire form of a value.Path segment.
type pathSegDTO struct {
	Field   string `json:"field,omitempty"`
	Index   int    `json:"index,omitempty"`
	IsIndex bool   `json:"isIndex,omitempty"`
}

// opDTO is the wire form of an Op, used to publish transactions to a
// syncmap.Map and to parse them back when syncing from a peer.
type opDTO struct {
	Kind        string          `json:"kind"`
	Path        []pathSegDTO    `json:"path,omitempty"`
	KeyKind     string          `json:"keyKind,omitempty"`
	KeyField    string          `json:"keyField,omitempty"`
	KeyIndex    int             `json:"keyIndex,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Index       int             `json:"index,omitempty"`
	DeleteCount int             `json:"deleteCount,omitempty"`
	Inserts     []json.RawMessage `json:"inserts,omitempty"`
}

func pathToDTO(p value.Path) []pathSegDTO {
	if len(p) == 0 {
		return nil
	}
	out := make([]pathSegDTO, len(p))
	for i, seg := range p {
		if seg.IsIndex() {
			out[i] = pathSegDTO{Index: seg.Idx(), IsIndex: true}
		} else {
			out[i] = pathSegDTO{Field: seg.Key()}
		}
	}
	return out
}

func pathFromDTO(segs []pathSegDTO) value.Path {
	if len(segs) == 0 {
		return nil
	}
	out := make(value.Path, len(segs))
	for i, s := range segs {
		if s.IsIndex {
			out[i] = value.Index(s.Index)
		} else {
			out[i] = value.FieldSeg(s.Field)
		}
	}
	return out
}

func keyKindString(k KeyKind) string {
	switch k {
	case KeyField:
		return "field"
	case KeyIndex:
		return "index"
	case KeyLength:
		return "length"
	default:
		return "unknown"
	}
}

func keyKindFromString(s string) (KeyKind, error) {
	switch s {
	case "field":
		return KeyField, nil
	case "index":
		return KeyIndex, nil
	case "length":
		return KeyLength, nil
	default:
		return 0, fmt.Errorf("ops: unknown key kind %q", s)
	}
}

func marshalValue(v value.Value) (json.RawMessage, error) {
	data, err := value.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func unmarshalValue(raw json.RawMessage) (value.Value, error) {
	if len(raw) == 0 {
		return value.Null(), nil
	}
	return value.Parse(raw)
}

func toDTO(op Op) (opDTO, error) {
	dto := opDTO{
		Kind:        op.Kind.String(),
		Path:        pathToDTO(op.Path),
		KeyKind:     keyKindString(op.Key.Kind),
		KeyField:    op.Key.Field,
		KeyIndex:    op.Key.Index,
		Index:       op.Index,
		DeleteCount: op.DeleteCount,
	}
	if op.Kind == Set || op.Kind == AddToSet || op.Kind == DeleteFromSet {
		v, err := marshalValue(op.Value)
		if err != nil {
			return opDTO{}, err
		}
		dto.Value = v
	}
	if op.Kind == Splice {
		dto.Inserts = make([]json.RawMessage, len(op.Inserts))
		for i, ins := range op.Inserts {
			v, err := marshalValue(ins)
			if err != nil {
				return opDTO{}, err
			}
			dto.Inserts[i] = v
		}
	}
	return dto, nil
}

func kindFromString(s string) (Kind, error) {
	switch s {
	case "Set":
		return Set, nil
	case "Delete":
		return Delete, nil
	case "Splice":
		return Splice, nil
	case "AddToSet":
		return AddToSet, nil
	case "DeleteFromSet":
		return DeleteFromSet, nil
	default:
		return 0, fmt.Errorf("ops: unknown op kind %q", s)
	}
}

func fromDTO(dto opDTO) (Op, error) {
	kind, err := kindFromString(dto.Kind)
	if err != nil {
		return Op{}, err
	}
	keyKind, err := keyKindFromString(dto.KeyKind)
	if err != nil {
		return Op{}, err
	}
	op := Op{
		Kind:        kind,
		Path:        pathFromDTO(dto.Path),
		Key:         Key{Kind: keyKind, Field: dto.KeyField, Index: dto.KeyIndex},
		Index:       dto.Index,
		DeleteCount: dto.DeleteCount,
	}
	if len(dto.Value) > 0 {
		v, err := unmarshalValue(dto.Value)
		if err != nil {
			return Op{}, err
		}
		op.Value = v
	}
	if len(dto.Inserts) > 0 {
		op.Inserts = make([]value.Value, len(dto.Inserts))
		for i, raw := range dto.Inserts {
			v, err := unmarshalValue(raw)
			if err != nil {
				return Op{}, err
			}
			op.Inserts[i] = v
		}
	}
	return op, nil
}

// MarshalOps serializes a transaction's ops to JSON.
func MarshalOps(txOps []Op) ([]byte, error) {
	dtos := make([]opDTO, len(txOps))
	for i, op := range txOps {
		dto, err := toDTO(op)
		if err != nil {
			return nil, err
		}
		dtos[i] = dto
	}
	return json.Marshal(dtos)
}

// UnmarshalOps parses a transaction's ops from the JSON produced by
// MarshalOps.
func UnmarshalOps(data []byte) ([]Op, error) {
	var dtos []opDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, err
	}
	out := make([]Op, len(dtos))
	for i, dto := range dtos {
		op, err := fromDTO(dto)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}
