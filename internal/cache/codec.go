package cache

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// entryFormat 标记条目文件的信封版本，读取时不匹配即视为损坏。
const entryFormat = "any-web/cache.v1"

var errCorruptEntry = errors.New("corrupt cache entry")

// envelope 是写入磁盘的 yaml 文档结构，TTL 以秒保存以便人工查看。
type envelope struct {
	Format     string     `yaml:"format"`
	TTLSeconds float64    `yaml:"ttl"`
	Value      *yaml.Node `yaml:"value"`
}

// rawEnvelope 延迟解码 value，使调用方可以选择解码为 any 或具体类型。
type rawEnvelope struct {
	Format     string    `yaml:"format"`
	TTLSeconds float64   `yaml:"ttl"`
	Value      yaml.Node `yaml:"value"`
}

func (e rawEnvelope) ttl() time.Duration {
	if e.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(e.TTLSeconds * float64(time.Second))
}

// encodeEntry 序列化值与 TTL。yaml 编码器遇到 func/chan/complex 时会直接 panic，
// 这里统一收敛为 ErrUnencodable。
func encodeEntry(value any, ttl time.Duration) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("%w: %v", ErrUnencodable, r)
		}
	}()

	node, err := valueNode(reflect.ValueOf(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	data, err = yaml.Marshal(envelope{
		Format:     entryFormat,
		TTLSeconds: ttl.Seconds(),
		Value:      node,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return data, nil
}

// decodeEnvelope 解析信封头部；格式标记缺失或不匹配都视为损坏。
func decodeEnvelope(data []byte) (raw rawEnvelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errCorruptEntry, r)
		}
	}()

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return rawEnvelope{}, fmt.Errorf("%w: %v", errCorruptEntry, err)
	}
	if raw.Format != entryFormat {
		return rawEnvelope{}, fmt.Errorf("%w: unexpected format %q", errCorruptEntry, raw.Format)
	}
	return raw, nil
}

// decodeValue 将信封中的 value 节点解码到 out（指针）。
func decodeValue(raw rawEnvelope, out any) error {
	if raw.Value.Kind == 0 {
		return nil
	}
	if err := raw.Value.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errCorruptEntry, err)
	}
	return nil
}

var (
	yamlMarshalerType = reflect.TypeOf((*yaml.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// valueNode 将值转换为 yaml 节点树。浮点数带显式 !!float 标签，
// 否则 2.0 会被写成 2 并在读取时还原为 int。
func valueNode(rv reflect.Value) (*yaml.Node, error) {
	if !rv.IsValid() {
		return nullNode(), nil
	}
	if rv.Type().Implements(yamlMarshalerType) || rv.Type().Implements(textMarshalerType) {
		return encodeNode(rv)
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nullNode(), nil
		}
		return valueNode(rv.Elem())
	case reflect.Float32, reflect.Float64:
		return floatNode(rv), nil
	case reflect.Map:
		if rv.IsNil() {
			return encodeNode(rv)
		}
		return mapNode(rv)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return encodeNode(rv)
		}
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := 0; i < rv.Len(); i++ {
			item, err := valueNode(rv.Index(i))
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, item)
		}
		return node, nil
	default:
		return encodeNode(rv)
	}
}

func mapNode(rv reflect.Value) (*yaml.Node, error) {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range keys {
		keyNode, err := valueNode(key)
		if err != nil {
			return nil, err
		}
		valNode, err := valueNode(rv.MapIndex(key))
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func floatNode(rv reflect.Value) *yaml.Node {
	bits := 64
	if rv.Kind() == reflect.Float32 {
		bits = 32
	}
	text := strconv.FormatFloat(rv.Float(), 'g', -1, bits)
	switch text {
	case "+Inf":
		text = ".inf"
	case "-Inf":
		text = "-.inf"
	case "NaN":
		text = ".nan"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// encodeNode 交给 yaml 编码器处理其余类型；func/chan 会在这里 panic，
// 由 encodeEntry 统一收敛。
func encodeNode(rv reflect.Value) (*yaml.Node, error) {
	var node yaml.Node
	if err := node.Encode(rv.Interface()); err != nil {
		return nil, err
	}
	return &node, nil
}
