package tracker

import (
	"bytes"
	"net"
	"testing"
)

func TestPackPeerIPv4(t *testing.T) {
	packed, isV6, ok := packPeer("192.168.1.10", 6881)
	if !ok {
		t.Fatal("packPeer失败")
	}
	if isV6 {
		t.Error("IPv4地址被判为IPv6")
	}
	want := []byte{192, 168, 1, 10, 0x1a, 0xe1} // 6881 = 0x1AE1，大端
	if !bytes.Equal(packed, want) {
		t.Errorf("packed = %v, want %v", packed, want)
	}
}

func TestPackPeerIPv6(t *testing.T) {
	packed, isV6, ok := packPeer("2001:db8::1", 51413)
	if !ok {
		t.Fatal("packPeer失败")
	}
	if !isV6 {
		t.Error("IPv6地址被判为IPv4")
	}
	if len(packed) != 18 {
		t.Fatalf("len = %d, want 18", len(packed))
	}
	if !bytes.Equal(packed[:16], net.ParseIP("2001:db8::1").To16()) {
		t.Errorf("地址部分不匹配: %v", packed[:16])
	}
	if packed[16] != 0xc8 || packed[17] != 0xd5 { // 51413 = 0xC8D5
		t.Errorf("端口部分 = %v, want [0xc8 0xd5]", packed[16:])
	}
}

func TestPackPeerRejectsInvalidInput(t *testing.T) {
	if _, _, ok := packPeer("not-an-ip", 6881); ok {
		t.Error("非法地址未被拒绝")
	}
	if _, _, ok := packPeer("10.0.0.1", 0); ok {
		t.Error("端口0未被拒绝")
	}
	if _, _, ok := packPeer("10.0.0.1", 70000); ok {
		t.Error("超范围端口未被拒绝")
	}
}
