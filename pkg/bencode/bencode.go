package bencode

import (
	"bytes"
	"fmt"

	jackpal "github.com/jackpal/bencode-go"
)

// Encode 将一个值序列化为bencode字节串。
// 支持的类型：整数、字符串/字节串、切片，以及按键名字节序排序的字典。
// 字典键的排序由底层编码器保证，这是bencode规范的硬性要求。
// 不支持的类型（浮点数、channel等）会立刻返回错误，而不是写出半截数据。
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := jackpal.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("bencode编码失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode 将bencode字节串还原为Go值。
// 整数还原为int64，字节串还原为string，列表还原为[]interface{}，
// 字典还原为map[string]interface{}。满足 Decode(Encode(v)) == v。
// 输入格式错误时返回错误，绝不panic。
func Decode(data []byte) (v interface{}, err error) {
	// 底层解码器在个别畸形输入上会panic，这里统一拦截成错误返回
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("bencode解码失败: %v", r)
		}
	}()

	v, err = jackpal.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bencode解码失败: %w", err)
	}
	return v, nil
}
